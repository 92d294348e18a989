package session

import (
	"sync"

	"mockly/internal/model/interview"
)

// AnswerStore accumulates per-question answers with last-write-wins
// replacement. It is the system of record for the final submission; the
// conversation timeline is not.
type AnswerStore struct {
	mu      sync.Mutex
	order   []string
	answers map[string]string
}

// NewAnswerStore returns an empty store.
func NewAnswerStore() *AnswerStore {
	return &AnswerStore{answers: make(map[string]string)}
}

// Record upserts the answer for a question. Re-recording replaces the text;
// first-record order is preserved for the submission payload.
func (a *AnswerStore) Record(questionID, text string) {
	if questionID == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.answers[questionID]; !ok {
		a.order = append(a.order, questionID)
	}
	a.answers[questionID] = text
}

// Get returns the current answer for a question.
func (a *AnswerStore) Get(questionID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	text, ok := a.answers[questionID]
	return text, ok
}

// Len is the number of distinct answered questions.
func (a *AnswerStore) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.answers)
}

// ToSubmission snapshots the store into a submission payload. Pure read:
// exactly one response per recorded question, unanswered questions absent.
func (a *AnswerStore) ToSubmission(userID, sessionID string) interview.Submission {
	a.mu.Lock()
	defer a.mu.Unlock()

	responses := make([]interview.Answer, 0, len(a.order))
	for _, questionID := range a.order {
		responses = append(responses, interview.Answer{
			QuestionID: questionID,
			Text:       a.answers[questionID],
		})
	}

	return interview.Submission{
		UserID:    userID,
		SessionID: sessionID,
		Responses: responses,
	}
}
