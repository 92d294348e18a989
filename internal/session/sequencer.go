package session

import "mockly/internal/model/interview"

// Sequencer holds the ordered question list and the cursor of the interview.
// Order is exactly the order received from the Interview Service.
type Sequencer struct {
	questions []interview.Question
	cursor    int
}

// NewSequencer copies the question list; an empty list is valid.
func NewSequencer(questions []interview.Question) *Sequencer {
	return &Sequencer{questions: append([]interview.Question(nil), questions...)}
}

// Current returns the question at the cursor, or false when the list is
// empty or exhausted.
func (s *Sequencer) Current() (interview.Question, bool) {
	if s.cursor >= len(s.questions) {
		return interview.Question{}, false
	}
	return s.questions[s.cursor], true
}

// Advance moves the cursor forward one position and returns the new current
// question. Advancing past the end is a normal terminal condition, not an
// error: the cursor parks at exhaustion and stays there.
func (s *Sequencer) Advance() (interview.Question, bool) {
	if s.cursor < len(s.questions) {
		s.cursor++
	}
	return s.Current()
}

// Exhausted reports whether every question has been passed.
func (s *Sequencer) Exhausted() bool {
	return s.cursor >= len(s.questions)
}

// Len is the total number of scripted questions.
func (s *Sequencer) Len() int {
	return len(s.questions)
}
