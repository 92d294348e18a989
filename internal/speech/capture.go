package speech

import (
	"sync"

	"go.uber.org/zap"
)

// CaptureEngine is the capability surface of a continuous speech-to-text
// engine. Results, errors, and end-of-speech arrive through the Capture's
// Handle* methods, which the engine implementation calls.
type CaptureEngine interface {
	Start() error
	Stop()
}

// Capture is the speech capture adapter: it owns listening state and turns
// engine callbacks into a consumable snapshot stream. A nil engine means
// the capability is unavailable and Start fails with ErrUnsupported.
type Capture struct {
	engine CaptureEngine
	log    *zap.Logger

	mu        sync.Mutex
	listening bool

	snapshots chan Snapshot
	done      chan error
}

// NewCapture wraps an engine. Pass nil when no recognition capability exists.
func NewCapture(engine CaptureEngine, log *zap.Logger) *Capture {
	if log == nil {
		log = zap.NewNop()
	}
	return &Capture{
		engine:    engine,
		log:       log,
		snapshots: make(chan Snapshot, 16),
		done:      make(chan error, 1),
	}
}

// Supported reports whether a recognition engine is present.
func (c *Capture) Supported() bool {
	return c.engine != nil
}

// Start begins continuous listening. Calling it while already listening is
// an error by policy, not a silent no-op.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine == nil {
		return ErrUnsupported
	}
	if c.listening {
		return ErrAlreadyListening
	}

	if err := c.engine.Start(); err != nil {
		return err
	}
	c.listening = true
	return nil
}

// Stop ends listening. Safe to call when not listening.
func (c *Capture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.listening {
		return
	}
	c.listening = false
	c.engine.Stop()
}

// Listening reports whether a run is active.
func (c *Capture) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

// Snapshots is the incremental transcript stream.
func (c *Capture) Snapshots() <-chan Snapshot {
	return c.snapshots
}

// Done yields once per engine-initiated end of a listening run: nil for
// natural end-of-speech, a *RecognitionError for engine failures. Explicit
// Stop calls do not report here; the caller already knows.
func (c *Capture) Done() <-chan error {
	return c.done
}

// HandleResult is called by the engine for every transcript update.
func (c *Capture) HandleResult(text string, final bool) {
	select {
	case c.snapshots <- Snapshot{Text: text, Final: final}:
	default:
		// The consumer only cares about the latest state; dropping under
		// backpressure loses nothing it cannot recover from the next result.
		c.log.Debug("dropping transcript snapshot", zap.Bool("final", final))
	}
}

// HandleError is called by the engine on a mid-run failure. Listening state
// transitions to false and the run ends with a RecognitionError.
func (c *Capture) HandleError(reason string) {
	c.mu.Lock()
	wasListening := c.listening
	c.listening = false
	c.mu.Unlock()

	if !wasListening {
		return
	}
	c.log.Warn("speech recognition error", zap.String("reason", reason))
	c.finish(&RecognitionError{Reason: reason})
}

// HandleEnd is called by the engine when it detects end of speech. Treated
// the same as an explicit stop by the session controller.
func (c *Capture) HandleEnd() {
	c.mu.Lock()
	wasListening := c.listening
	c.listening = false
	c.mu.Unlock()

	if !wasListening {
		return
	}
	c.finish(nil)
}

func (c *Capture) finish(err error) {
	select {
	case c.done <- err:
	default:
	}
}
