package session

import "time"

// Event types pushed to the UI over the session event stream.
const (
	EventMessage    = "message"
	EventTyping     = "typing"
	EventState      = "state"
	EventNotice     = "notice"
	EventTranscript = "transcript"
	EventListening  = "listening"
	EventCompleted  = "completed"
	EventRedirect   = "redirect"
)

// Event is one UI-facing session update.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func newEvent(eventType string, data interface{}) Event {
	return Event{Type: eventType, Data: data, Timestamp: time.Now().UnixMilli()}
}

// Notice is a dismissible transient message for the user. Errors here are
// recoverable by definition; nothing in the session is fatal.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// CompletionData accompanies the completed event.
type CompletionData struct {
	Score       float64 `json:"score"`
	InterviewID string  `json:"interview_id"`
}
