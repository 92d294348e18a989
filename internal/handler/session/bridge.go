package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mockly/internal/speech"
)

var errBridgeDetached = errors.New("no speech bridge connected")

// Bridge exposes the browser's speech engines to a session controller. The
// browser owns SpeechRecognition and speechSynthesis; the bridge relays
// commands out and results back over one websocket. It implements both
// speech.CaptureEngine and speech.PlaybackEngine.
type Bridge struct {
	log *zap.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	capture *speech.Capture
	speaker *speech.Speaker
	paused  bool
	voices  []string
}

// NewBridge returns a detached bridge. Engine commands fail until a
// websocket attaches.
func NewBridge(log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{log: log}
}

// Bind points the bridge at the adapters that consume browser results. Set
// once, right after the controller's adapters are built around the bridge.
func (b *Bridge) Bind(capture *speech.Capture, speaker *speech.Speaker) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.capture = capture
	b.speaker = speaker
}

// Attach takes over as the live connection. A newer tab wins; the previous
// connection is closed.
func (b *Bridge) Attach(conn *websocket.Conn) {
	b.mu.Lock()
	previous := b.conn
	b.conn = conn
	b.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
}

// Detach clears the connection if it is still the live one.
func (b *Bridge) Detach(conn *websocket.Conn) {
	b.mu.Lock()
	if b.conn == conn {
		b.conn = nil
	}
	b.mu.Unlock()
}

type bridgeCommand struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func (b *Bridge) send(commandType string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return errBridgeDetached
	}
	command := bridgeCommand{Type: commandType, Data: data, Timestamp: time.Now().UnixMilli()}
	if err := b.conn.WriteJSON(command); err != nil {
		b.log.Warn("bridge write failed", zap.String("command", commandType), zap.Error(err))
		return err
	}
	return nil
}

// Start asks the browser to begin continuous recognition.
func (b *Bridge) Start() error {
	return b.send("listen_start", nil)
}

// Stop asks the browser to end recognition.
func (b *Bridge) Stop() {
	_ = b.send("listen_stop", nil)
}

// Speak asks the browser to synthesize one utterance.
func (b *Bridge) Speak(u speech.Utterance) error {
	return b.send("speak", u)
}

// Cancel clears the browser's synthesis queue.
func (b *Bridge) Cancel() {
	_ = b.send("speak_cancel", nil)
}

// Paused reports the last synthesis pause state the browser sent.
func (b *Bridge) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

// Resume nudges a paused synthesis engine back into motion.
func (b *Bridge) Resume() {
	_ = b.send("speak_resume", nil)
}

// Voices returns the voice names the browser reported.
func (b *Bridge) Voices() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.voices...)
}

type recognitionPayload struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

type reasonPayload struct {
	Reason string `json:"reason"`
}

type speechEventPayload struct {
	ID     uint64 `json:"id"`
	Reason string `json:"reason,omitempty"`
}

type pausedPayload struct {
	Paused bool `json:"paused"`
}

type voicesPayload struct {
	Voices []string `json:"voices"`
}

// HandleInbound routes one browser message into the speech adapters.
func (b *Bridge) HandleInbound(messageType string, raw json.RawMessage) {
	b.mu.Lock()
	capture := b.capture
	speaker := b.speaker
	b.mu.Unlock()

	switch messageType {
	case "recognition":
		var payload recognitionPayload
		if err := json.Unmarshal(raw, &payload); err != nil || capture == nil {
			return
		}
		capture.HandleResult(payload.Text, payload.IsFinal)
	case "recognition_error":
		var payload reasonPayload
		if err := json.Unmarshal(raw, &payload); err != nil || capture == nil {
			return
		}
		capture.HandleError(payload.Reason)
	case "recognition_end":
		if capture != nil {
			capture.HandleEnd()
		}
	case "speech_end":
		var payload speechEventPayload
		if err := json.Unmarshal(raw, &payload); err != nil || speaker == nil {
			return
		}
		speaker.HandleEnd(payload.ID)
	case "speech_error":
		var payload speechEventPayload
		if err := json.Unmarshal(raw, &payload); err != nil || speaker == nil {
			return
		}
		speaker.HandleError(payload.ID, payload.Reason)
	case "speech_paused":
		var payload pausedPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return
		}
		b.mu.Lock()
		b.paused = payload.Paused
		b.mu.Unlock()
	case "voices":
		var payload voicesPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return
		}
		b.mu.Lock()
		b.voices = payload.Voices
		b.mu.Unlock()
	default:
		b.log.Debug("unknown bridge message", zap.String("type", messageType))
	}
}

// Bridges tracks the speech bridge of each live session.
type Bridges struct {
	mu      sync.RWMutex
	bridges map[string]*Bridge
	log     *zap.Logger
}

// NewBridges returns an empty bridge registry.
func NewBridges(log *zap.Logger) *Bridges {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridges{bridges: make(map[string]*Bridge), log: log}
}

// Create makes and registers a bridge for a session.
func (s *Bridges) Create(sessionID string) *Bridge {
	bridge := NewBridge(s.log.With(zap.String("sessionId", sessionID)))
	s.mu.Lock()
	s.bridges[sessionID] = bridge
	s.mu.Unlock()
	return bridge
}

// Get looks a bridge up by session id.
func (s *Bridges) Get(sessionID string) (*Bridge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bridge, ok := s.bridges[sessionID]
	return bridge, ok
}

// Remove drops a session's bridge.
func (s *Bridges) Remove(sessionID string) {
	s.mu.Lock()
	delete(s.bridges, sessionID)
	s.mu.Unlock()
}
