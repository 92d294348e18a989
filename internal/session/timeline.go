package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"mockly/internal/model/interview"
)

// Timeline is the append-only log of displayed conversation messages, in
// causal order. Rendering state only; answers live in the AnswerStore.
type Timeline struct {
	mu       sync.Mutex
	messages []interview.Message
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{}
}

// Append adds one message and returns it with id and timestamp filled in.
func (t *Timeline) Append(sender interview.Sender, text string) interview.Message {
	message := interview.Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	t.mu.Lock()
	t.messages = append(t.messages, message)
	t.mu.Unlock()

	return message
}

// Messages returns a copy of the log in insertion order.
func (t *Timeline) Messages() []interview.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	copied := make([]interview.Message, len(t.messages))
	copy(copied, t.messages)
	return copied
}

// Len is the number of displayed messages.
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
