package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"mockly/internal/auth"
	"mockly/internal/config"
	"mockly/internal/model/interview"
	"mockly/internal/service/api"
)

func setup(t *testing.T, upstream http.Handler, provider auth.Provider) *chi.Mux {
	t.Helper()

	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	client := api.New(config.ServiceConfig{BaseURL: server.URL, Timeout: 2 * time.Second}, nil)
	handler := New(client, provider, nil)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func TestStatsProxied(t *testing.T) {
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user_stats/user-1" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"total_interviews": 3, "average_score": 7.5})
	})
	r := setup(t, upstream, auth.NewStaticProvider(auth.User{ID: "user-1"}))

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var stats interview.UserStats
	if err := json.Unmarshal(resp.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalInterviews != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestStatsRequiresSignIn(t *testing.T) {
	r := setup(t, http.NotFoundHandler(), auth.NewSignedOutProvider())

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestUpstreamFailureIsBadGateway(t *testing.T) {
	upstream := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	})
	r := setup(t, upstream, auth.NewStaticProvider(auth.User{ID: "user-1"}))

	req := httptest.NewRequest(http.MethodGet, "/evaluations", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}

func TestReportNotFound(t *testing.T) {
	upstream := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"mock_interviews": []any{}})
	})
	r := setup(t, upstream, auth.NewStaticProvider(auth.User{ID: "user-1"}))

	req := httptest.NewRequest(http.MethodGet, "/interviews/missing-session", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
