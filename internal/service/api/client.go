// Package api is the HTTP client for the external Interview Service.
// Responses are decoded defensively: missing or malformed fields degrade to
// zero counts and empty lists instead of failing the session.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"mockly/internal/config"
	"mockly/internal/model/interview"
)

var (
	ErrReportNotFound = errors.New("no stored interview for session")
)

// StatusError reports a non-2xx response from the Interview Service.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("interview service returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("interview service returned %d", e.Code)
}

// Client talks to the Interview Service. All calls are bounded by the
// configured timeout via the underlying http.Client.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// New builds a client for the configured service endpoint.
func New(cfg config.ServiceConfig, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

// FetchQuestions loads the question list for one session. An empty list is a
// valid response; questions without text get placeholder text, matching the
// service's own fallback.
func (c *Client) FetchQuestions(ctx context.Context, userID, sessionID string) ([]interview.Question, error) {
	if userID == "" || sessionID == "" {
		return nil, errors.New("missing user or session information")
	}

	var payload struct {
		Questions []struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"questions"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/question/%s/%s", userID, sessionID), &payload); err != nil {
		return nil, err
	}

	questions := make([]interview.Question, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		if q.ID == "" {
			c.log.Warn("dropping question without id", zap.String("sessionId", sessionID))
			continue
		}
		text := q.Text
		if text == "" {
			text = "No question text available"
		}
		questions = append(questions, interview.Question{ID: q.ID, Text: text})
	}
	return questions, nil
}

// SubmitResponses posts the finished interview for scoring.
func (c *Client) SubmitResponses(ctx context.Context, sub interview.Submission) (interview.SubmissionResult, error) {
	if sub.UserID == "" || sub.SessionID == "" {
		return interview.SubmissionResult{}, errors.New("missing user or session information")
	}

	body, err := json.Marshal(sub)
	if err != nil {
		return interview.SubmissionResult{}, fmt.Errorf("encode submission: %w", err)
	}

	path := fmt.Sprintf("/process_interview_responses/%s/%s", sub.UserID, sub.SessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return interview.SubmissionResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var result interview.SubmissionResult
	if err := c.do(req, &result); err != nil {
		return interview.SubmissionResult{}, err
	}
	return result, nil
}

// UserStats loads aggregate dashboard numbers. Missing fields come back zero.
func (c *Client) UserStats(ctx context.Context, userID string) (interview.UserStats, error) {
	var stats interview.UserStats
	if err := c.getJSON(ctx, "/user_stats/"+userID, &stats); err != nil {
		return interview.UserStats{}, err
	}
	return stats, nil
}

// PerformanceEvaluations loads per-category scores for the radar chart.
func (c *Client) PerformanceEvaluations(ctx context.Context, userID string) ([]interview.EvaluationScore, error) {
	var payload struct {
		EvaluationScores []interview.EvaluationScore `json:"evaluation_scores"`
	}
	if err := c.getJSON(ctx, "/performance_evaluations/"+userID, &payload); err != nil {
		return nil, err
	}
	if payload.EvaluationScores == nil {
		return []interview.EvaluationScore{}, nil
	}
	return payload.EvaluationScores, nil
}

// TestScores loads the user's recent interview results.
func (c *Client) TestScores(ctx context.Context, userID string) (interview.ScoreHistory, error) {
	var history interview.ScoreHistory
	if err := c.getJSON(ctx, "/test_scores/"+userID, &history); err != nil {
		return interview.ScoreHistory{}, err
	}
	if history.TestScores == nil {
		history.TestScores = []interview.TestScore{}
	}
	return history, nil
}

// MockInterviews loads every stored interview for the user.
func (c *Client) MockInterviews(ctx context.Context, userID string) ([]interview.Report, error) {
	var payload struct {
		MockInterviews []interview.Report `json:"mock_interviews"`
	}
	if err := c.getJSON(ctx, "/get_mock_interview/"+userID, &payload); err != nil {
		return nil, err
	}
	return payload.MockInterviews, nil
}

// FindReport filters stored interviews down to one session, the way the
// report page does.
func (c *Client) FindReport(ctx context.Context, userID, sessionID string) (interview.Report, error) {
	reports, err := c.MockInterviews(ctx, userID)
	if err != nil {
		return interview.Report{}, err
	}
	for _, report := range reports {
		if report.SessionID == sessionID {
			return report, nil
		}
	}
	return interview.Report{}, ErrReportNotFound
}

// UploadResult is the service's answer to a resume upload.
type UploadResult struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// UploadResume sends the resume file and gets back a fresh session id.
func (c *Client) UploadResume(ctx context.Context, userID, filename string, file io.Reader) (UploadResult, error) {
	if userID == "" {
		return UploadResult{}, errors.New("missing user information")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return UploadResult{}, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return UploadResult{}, fmt.Errorf("read resume: %w", err)
	}
	if err := writer.WriteField("user_id", userID); err != nil {
		return UploadResult{}, err
	}
	if err := writer.Close(); err != nil {
		return UploadResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload_resume", &buf)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return UploadResult{}, err
	}
	if result.SessionID == "" {
		c.log.Warn("upload response missing session_id")
	}
	return result, nil
}

// StartInterview marks a session as started.
func (c *Client) StartInterview(ctx context.Context, sessionID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/start-interview/"+sessionID, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("interview service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		// Malformed payloads are logged with their shape and surfaced like any
		// other service failure; callers fall back to documented defaults.
		c.log.Error("malformed interview service response",
			zap.String("path", req.URL.Path),
			zap.Int("bytes", len(body)),
			zap.Error(err),
		)
		return fmt.Errorf("malformed response from %s: %w", req.URL.Path, err)
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	var payload struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 64<<10)).Decode(&payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	if payload.Detail != "" {
		return payload.Detail
	}
	return payload.Error
}
