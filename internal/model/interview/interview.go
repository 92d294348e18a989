package interview

import "time"

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Question is a single interview question as served by the Interview Service.
// Immutable once fetched.
type Question struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Answer is the user's current answer to one question. At most one Answer
// exists per question id; a re-answer replaces the text.
type Answer struct {
	QuestionID string `json:"questionId"`
	Text       string `json:"answer"`
}

// Message is one rendered conversation turn. Append-only, never mutated.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Submission is the payload posted to the Interview Service when the user
// ends the interview. Derived from the answer store, never stored itself.
type Submission struct {
	UserID    string   `json:"userId"`
	SessionID string   `json:"sessionId"`
	Responses []Answer `json:"responses"`
}

// SubmissionResult is what the Interview Service returns for a scored interview.
type SubmissionResult struct {
	Score       float64 `json:"score"`
	InterviewID string  `json:"interview_id"`
}
