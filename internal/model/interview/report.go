package interview

// UserStats aggregates a user's interview history for the dashboard.
type UserStats struct {
	AverageScore     float64 `json:"average_score"`
	TotalTimeMinutes float64 `json:"total_time_minutes"`
	TotalInterviews  int     `json:"total_interviews"`
}

// EvaluationScore is one category score on the dashboard radar chart.
type EvaluationScore struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// TestScore is one historical interview result.
type TestScore struct {
	TestNumber int     `json:"test_number"`
	SessionID  string  `json:"session_id"`
	Score      float64 `json:"score"`
	Timestamp  string  `json:"timestamp"`
}

// ScoreHistory is the user's recent interview results, newest first.
type ScoreHistory struct {
	TotalTests int         `json:"total_tests"`
	TestScores []TestScore `json:"test_scores"`
}

// FeedbackItem is per-question feedback inside a stored report.
type FeedbackItem struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
}

// Evaluation is the scored assessment attached to a completed interview.
type Evaluation struct {
	Score            float64            `json:"score"`
	Breakdown        map[string]float64 `json:"breakdown"`
	Strengths        []string           `json:"strengths"`
	ImprovementAreas []string           `json:"improvement_areas"`
}

// Report is one persisted interview as returned by get_mock_interview.
type Report struct {
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id"`
	Questions  []Question     `json:"questions"`
	Responses  []Answer       `json:"responses"`
	Feedback   []FeedbackItem `json:"feedback"`
	Score      float64        `json:"score"`
	Evaluation Evaluation     `json:"evaluation"`
	Completed  bool           `json:"completed"`
	Timestamp  string         `json:"timestamp"`
}
