package session

// State is the interview session lifecycle position.
type State int

const (
	StateInitializing State = iota
	StateAwaitingQuestions
	StateGreeting
	StateAskingQuestion
	StateAwaitingAnswer
	StateEvaluating
	StateWrapping
	StateSubmitting
	StateCompleted
	StateErrored
)

var stateNames = map[State]string{
	StateInitializing:      "initializing",
	StateAwaitingQuestions: "awaiting_questions",
	StateGreeting:          "greeting",
	StateAskingQuestion:    "asking_question",
	StateAwaitingAnswer:    "awaiting_answer",
	StateEvaluating:        "evaluating",
	StateWrapping:          "wrapping",
	StateSubmitting:        "submitting",
	StateCompleted:         "completed",
	StateErrored:           "errored",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// acceptsUserTurn reports whether a user turn may complete in this state.
// Wrapping covers the open-ended tail of the conversation; Errored keeps the
// session usable while a failed submission awaits a manual retry.
func (s State) acceptsUserTurn() bool {
	switch s {
	case StateAwaitingAnswer, StateWrapping, StateErrored:
		return true
	default:
		return false
	}
}
