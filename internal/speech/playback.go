package speech

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"mockly/internal/config"
)

// Utterance is one text-to-speech request handed to an engine.
type Utterance struct {
	ID     uint64
	Text   string
	Voice  string
	Rate   float32
	Pitch  float32
	Volume float32
}

// PlaybackEngine is the capability surface of a text-to-speech engine.
// Speak enqueues and returns; completion and failure arrive through the
// Speaker's HandleEnd/HandleError with the utterance id.
type PlaybackEngine interface {
	Speak(u Utterance) error
	Cancel()
	Paused() bool
	Resume()
	Voices() []string
}

// Speaker is the speech playback adapter. It guarantees at most one audible
// utterance, resumes engines that silently pause mid-utterance, and retries
// a failed utterance once.
type Speaker struct {
	engine PlaybackEngine
	cfg    config.SpeechConfig
	log    *zap.Logger

	mu      sync.Mutex
	enabled bool
	gen     uint64
	active  bool
	text    string
	isRetry bool
	stop    chan struct{}
}

// NewSpeaker wraps an engine. Pass nil when no synthesis capability exists;
// every method is then a no-op.
func NewSpeaker(engine PlaybackEngine, cfg config.SpeechConfig, log *zap.Logger) *Speaker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Speaker{engine: engine, cfg: cfg, log: log, enabled: true}
}

// Supported reports whether a synthesis engine is present.
func (s *Speaker) Supported() bool {
	return s.engine != nil
}

// Speak cancels any current utterance and plays text.
func (s *Speaker) Speak(text string) {
	s.speak(text, false)
}

func (s *Speaker) speak(text string, isRetry bool) {
	s.mu.Lock()
	if s.engine == nil || !s.enabled || text == "" {
		s.mu.Unlock()
		return
	}

	s.cancelLocked()
	s.gen++
	id := s.gen
	s.active = true
	s.text = text
	s.isRetry = isRetry
	stop := make(chan struct{})
	s.stop = stop

	u := Utterance{
		ID:     id,
		Text:   text,
		Voice:  ChooseVoice(s.engine.Voices(), s.cfg.PreferredVoices),
		Rate:   s.cfg.Rate,
		Pitch:  s.cfg.Pitch,
		Volume: s.cfg.Volume,
	}
	engine := s.engine
	s.mu.Unlock()

	if err := engine.Speak(u); err != nil {
		s.HandleError(id, err.Error())
		return
	}
	go s.watchdog(id, stop)
}

// watchdog resumes playback when the engine reports itself paused while this
// utterance is still the current one. It dies with the utterance.
func (s *Speaker) watchdog(id uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			current := s.active && s.gen == id
			engine := s.engine
			s.mu.Unlock()

			if !current {
				return
			}
			if engine.Paused() {
				engine.Resume()
			}
		}
	}
}

// Cancel stops playback immediately and releases the watchdog.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return
	}
	s.cancelLocked()
}

// SetEnabled toggles audio output. Disabling cancels the current utterance.
func (s *Speaker) SetEnabled(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = on
	if !on && s.engine != nil {
		s.cancelLocked()
	}
}

// Enabled reports whether audio output is on.
func (s *Speaker) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Speaking reports whether an utterance is currently active.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Close cancels playback; part of session teardown.
func (s *Speaker) Close() {
	s.Cancel()
}

// HandleEnd is called by the engine when an utterance finishes normally.
func (s *Speaker) HandleEnd(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.gen != id {
		return
	}
	s.finishLocked()
}

// HandleError is called by the engine when an utterance fails. The same text
// is retried once after a short delay if playback is still enabled and
// nothing newer superseded it.
func (s *Speaker) HandleError(id uint64, reason string) {
	s.mu.Lock()
	if !s.active || s.gen != id {
		s.mu.Unlock()
		return
	}
	s.finishLocked()
	text := s.text
	wasRetry := s.isRetry
	gen := s.gen
	s.mu.Unlock()

	s.log.Warn("speech synthesis error", zap.String("reason", reason), zap.Bool("retry", wasRetry))
	if wasRetry {
		return
	}

	time.AfterFunc(s.cfg.RetryDelay, func() {
		s.mu.Lock()
		stale := s.gen != gen
		enabled := s.enabled
		s.mu.Unlock()
		if stale || !enabled {
			return
		}
		s.speak(text, true)
	})
}

func (s *Speaker) finishLocked() {
	s.active = false
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

func (s *Speaker) cancelLocked() {
	if !s.active {
		return
	}
	s.finishLocked()
	s.engine.Cancel()
}

// ChooseVoice picks the first available voice matching a preference, in
// preference order, falling back to the engine default. A quality preference
// only; any voice is acceptable.
func ChooseVoice(available []string, preferred []string) string {
	for _, want := range preferred {
		if want == "" {
			continue
		}
		for _, voice := range available {
			if strings.Contains(strings.ToLower(voice), strings.ToLower(want)) {
				return voice
			}
		}
	}
	return ""
}
