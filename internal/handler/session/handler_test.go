package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"mockly/internal/auth"
	"mockly/internal/config"
	"mockly/internal/model/interview"
	sessionsvc "mockly/internal/session"
	"mockly/internal/speech"
)

type stubService struct {
	questions []interview.Question
}

func (s *stubService) FetchQuestions(context.Context, string, string) ([]interview.Question, error) {
	return s.questions, nil
}

func (s *stubService) SubmitResponses(context.Context, interview.Submission) (interview.SubmissionResult, error) {
	return interview.SubmissionResult{Score: 7, InterviewID: "iv-1"}, nil
}

func setupRouter(t *testing.T) (*chi.Mux, *sessionsvc.Registry) {
	t.Helper()

	svc := &stubService{questions: []interview.Question{{ID: "q1", Text: "Tell me about yourself."}}}
	registry := sessionsvc.NewRegistry(func(sessionID string) *sessionsvc.Controller {
		return sessionsvc.New(sessionsvc.Deps{
			SessionID: sessionID,
			Auth:      auth.NewStaticProvider(auth.User{ID: "user-1"}),
			Service:   svc,
			Capture:   speech.NewCapture(nil, nil),
			Speaker:   speech.NewSpeaker(nil, config.SpeechConfig{}, nil),
			Pace:      config.DefaultPace(),
			Schedule:  func(_ time.Duration, fn func()) { fn() },
		})
	}, nil)
	t.Cleanup(registry.Shutdown)

	handler := New(registry, NewBridges(nil), nil)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, registry
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestOpenSession(t *testing.T) {
	r, _ := setupRouter(t)

	resp := postJSON(t, r, "/session", map[string]string{"sessionId": "sess-1"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var snapshot sessionsvc.Snapshot
	if err := json.Unmarshal(resp.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.SessionID != "sess-1" || snapshot.State != "awaiting_answer" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestOpenSessionTwiceConflicts(t *testing.T) {
	r, _ := setupRouter(t)

	postJSON(t, r, "/session", map[string]string{"sessionId": "sess-1"})
	resp := postJSON(t, r, "/session", map[string]string{"sessionId": "sess-1"})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestStateUnknownSession(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/session/missing", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSubmitMessageAndEnd(t *testing.T) {
	r, registry := setupRouter(t)
	postJSON(t, r, "/session", map[string]string{"sessionId": "sess-1"})

	resp := postJSON(t, r, "/session/sess-1/message", map[string]string{"text": "my answer"})
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}

	ctrl, err := registry.Get("sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ctrl.State().Answered != 1 {
		t.Fatalf("expected answer recorded, got %d", ctrl.State().Answered)
	}

	resp = postJSON(t, r, "/session/sess-1/end", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = postJSON(t, r, "/session/sess-1/end", nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("ending twice should conflict, got %d", resp.Code)
	}
}

func TestMessageRequiresText(t *testing.T) {
	r, _ := setupRouter(t)
	postJSON(t, r, "/session", map[string]string{"sessionId": "sess-1"})

	resp := postJSON(t, r, "/session/sess-1/message", map[string]string{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestControls(t *testing.T) {
	r, _ := setupRouter(t)
	postJSON(t, r, "/session", map[string]string{"sessionId": "sess-1"})

	resp := postJSON(t, r, "/session/sess-1/controls", map[string]string{"control": "mic"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var result struct {
		Control string `json:"control"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Control != "mic" || result.Enabled {
		t.Fatalf("expected mic toggled off, got %+v", result)
	}

	resp = postJSON(t, r, "/session/sess-1/controls", map[string]string{"control": "bogus"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown control, got %d", resp.Code)
	}
}

func TestCloseSession(t *testing.T) {
	r, registry := setupRouter(t)
	postJSON(t, r, "/session", map[string]string{"sessionId": "sess-1"})

	req := httptest.NewRequest(http.MethodDelete, "/session/sess-1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if registry.Len() != 0 {
		t.Fatalf("expected no live sessions, got %d", registry.Len())
	}
}

func TestListenWithoutRecognitionEngine(t *testing.T) {
	r, _ := setupRouter(t)
	postJSON(t, r, "/session", map[string]string{"sessionId": "sess-1"})

	resp := postJSON(t, r, "/session/sess-1/listen", map[string]string{"action": "start"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var result struct {
		Listening bool `json:"listening"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Listening {
		t.Fatal("no engine is attached, listening must be false")
	}
}
