package speech

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"mockly/internal/config"
)

type fakePlaybackEngine struct {
	mu       sync.Mutex
	spoken   []Utterance
	cancels  int
	resumes  int
	paused   bool
	voices   []string
	speakErr error
}

func (f *fakePlaybackEngine) Speak(u Utterance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.speakErr != nil {
		return f.speakErr
	}
	f.spoken = append(f.spoken, u)
	return nil
}

func (f *fakePlaybackEngine) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakePlaybackEngine) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakePlaybackEngine) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumes++
	f.paused = false
}

func (f *fakePlaybackEngine) Voices() []string {
	return f.voices
}

func (f *fakePlaybackEngine) setPaused(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = on
}

func (f *fakePlaybackEngine) resumeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resumes
}

func (f *fakePlaybackEngine) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

func (f *fakePlaybackEngine) utterances() []Utterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Utterance, len(f.spoken))
	copy(out, f.spoken)
	return out
}

func testSpeechConfig() config.SpeechConfig {
	return config.SpeechConfig{
		WatchdogInterval: 5 * time.Millisecond,
		RetryDelay:       5 * time.Millisecond,
		PreferredVoices:  []string{"Google UK English Female", "Female", "Samantha"},
		Rate:             1.0,
		Pitch:            1.0,
		Volume:           1.0,
	}
}

func TestSpeakerSingleUtterance(t *testing.T) {
	engine := &fakePlaybackEngine{}
	s := NewSpeaker(engine, testSpeechConfig(), zap.NewNop())
	defer s.Close()

	s.Speak("first")
	s.Speak("second")

	utterances := engine.utterances()
	if len(utterances) != 2 {
		t.Fatalf("expected 2 engine speaks, got %d", len(utterances))
	}
	if engine.cancelCount() != 1 {
		t.Fatalf("expected 1 cancel before superseding, got %d", engine.cancelCount())
	}
	if utterances[1].Text != "second" {
		t.Fatalf("current utterance should be %q", utterances[1].Text)
	}
	if !s.Speaking() {
		t.Fatal("speaker should still be active")
	}
}

func TestSpeakerWatchdogResumesCurrentOnly(t *testing.T) {
	engine := &fakePlaybackEngine{}
	s := NewSpeaker(engine, testSpeechConfig(), zap.NewNop())
	defer s.Close()

	s.Speak("a")
	s.Speak("b")

	// The b watchdog should resume a paused engine.
	engine.setPaused(true)
	deadline := time.Now().Add(time.Second)
	for engine.resumeCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("watchdog never resumed the paused engine")
		}
		time.Sleep(time.Millisecond)
	}

	// Once b ends, no watchdog is alive: a paused engine must stay paused.
	utterances := engine.utterances()
	s.HandleEnd(utterances[len(utterances)-1].ID)
	resumesAfterEnd := engine.resumeCount()
	engine.setPaused(true)
	time.Sleep(50 * time.Millisecond)
	if engine.resumeCount() != resumesAfterEnd {
		t.Fatal("a watchdog fired after its utterance ended")
	}
}

func TestSpeakerRetriesOnceOnError(t *testing.T) {
	engine := &fakePlaybackEngine{}
	s := NewSpeaker(engine, testSpeechConfig(), zap.NewNop())
	defer s.Close()

	s.Speak("flaky")
	first := engine.utterances()[0]
	s.HandleError(first.ID, "synthesis-failed")

	deadline := time.Now().Add(time.Second)
	for len(engine.utterances()) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("expected one retry")
		}
		time.Sleep(time.Millisecond)
	}

	second := engine.utterances()[1]
	if second.Text != "flaky" {
		t.Fatalf("retry should replay same text, got %q", second.Text)
	}

	// Failing the retry must not retry again.
	s.HandleError(second.ID, "synthesis-failed")
	time.Sleep(50 * time.Millisecond)
	if got := len(engine.utterances()); got != 2 {
		t.Fatalf("expected no second retry, engine saw %d speaks", got)
	}
}

func TestSpeakerNoRetryWhenDisabled(t *testing.T) {
	engine := &fakePlaybackEngine{}
	s := NewSpeaker(engine, testSpeechConfig(), zap.NewNop())
	defer s.Close()

	s.Speak("quiet")
	first := engine.utterances()[0]
	s.SetEnabled(false)
	s.HandleError(first.ID, "synthesis-failed")

	time.Sleep(50 * time.Millisecond)
	if got := len(engine.utterances()); got != 1 {
		t.Fatalf("disabled speaker must not retry, engine saw %d speaks", got)
	}
}

func TestSpeakerDisabledSpeakIsNoop(t *testing.T) {
	engine := &fakePlaybackEngine{}
	s := NewSpeaker(engine, testSpeechConfig(), zap.NewNop())
	defer s.Close()

	s.SetEnabled(false)
	s.Speak("nothing")
	if len(engine.utterances()) != 0 {
		t.Fatal("disabled speaker must not speak")
	}

	nilSpeaker := NewSpeaker(nil, testSpeechConfig(), zap.NewNop())
	nilSpeaker.Speak("nothing")
	nilSpeaker.Cancel()
	if nilSpeaker.Supported() {
		t.Fatal("nil engine should be unsupported")
	}
}

func TestSpeakerSpeakErrorTriggersRetry(t *testing.T) {
	engine := &fakePlaybackEngine{speakErr: errors.New("engine busy")}
	s := NewSpeaker(engine, testSpeechConfig(), zap.NewNop())
	defer s.Close()

	s.Speak("text")

	engine.mu.Lock()
	engine.speakErr = nil
	engine.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	for len(engine.utterances()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected retry after Speak error")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestChooseVoice(t *testing.T) {
	available := []string{"Daniel", "Google UK English Female", "Samantha"}
	preferred := []string{"Google UK English Female", "Female", "Samantha"}

	if got := ChooseVoice(available, preferred); got != "Google UK English Female" {
		t.Fatalf("unexpected voice: %q", got)
	}
	if got := ChooseVoice([]string{"Daniel", "Samantha"}, preferred); got != "Samantha" {
		t.Fatalf("unexpected fallback voice: %q", got)
	}
	if got := ChooseVoice([]string{"Daniel"}, preferred); got != "" {
		t.Fatalf("expected engine default, got %q", got)
	}
	if got := ChooseVoice(nil, preferred); got != "" {
		t.Fatalf("expected engine default for no voices, got %q", got)
	}
}
