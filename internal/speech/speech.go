// Package speech wraps speech-to-text and text-to-speech engines behind
// narrow adapter contracts so the session controller never touches engine
// feature detection directly.
package speech

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported means no recognition capability is available; callers
	// degrade to text-only interaction.
	ErrUnsupported = errors.New("speech recognition not supported")
	// ErrAlreadyListening means Start was called while a run is active.
	ErrAlreadyListening = errors.New("speech recognition already listening")
)

// RecognitionError is a mid-listening engine failure, surfaced as a
// transient condition rather than a crash.
type RecognitionError struct {
	Reason string
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("speech recognition error: %s", e.Reason)
}

// Snapshot is one incremental transcript state. Interim snapshots are
// provisional and superseded by the next one; final snapshots are terminal
// for the current utterance segment.
type Snapshot struct {
	Text  string
	Final bool
}

// Transcript accumulates snapshots into the working answer text: the latest
// final snapshot, or the latest interim when no final has arrived yet.
type Transcript struct {
	latestInterim string
	latestFinal   string
	hasFinal      bool
}

// Observe folds one snapshot into the accumulator.
func (t *Transcript) Observe(s Snapshot) {
	if s.Final {
		t.latestFinal = s.Text
		t.hasFinal = true
		return
	}
	t.latestInterim = s.Text
}

// Working returns the text a consumer should treat as the current answer.
func (t *Transcript) Working() string {
	if t.hasFinal {
		return t.latestFinal
	}
	return t.latestInterim
}

// Reset clears the accumulator for the next turn.
func (t *Transcript) Reset() {
	*t = Transcript{}
}
