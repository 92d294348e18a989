package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"mockly/internal/auth"
	dashboardHandler "mockly/internal/handler/dashboard"
	resumeHandler "mockly/internal/handler/resume"
	sessionHandler "mockly/internal/handler/session"
	middlewarePkg "mockly/internal/middleware"
	"mockly/internal/service/api"
	sessionsvc "mockly/internal/session"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(
	registry *sessionsvc.Registry,
	bridges *sessionHandler.Bridges,
	client *api.Client,
	authProvider auth.Provider,
	log *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	sessions := sessionHandler.New(registry, bridges, log)
	speechBridge := sessionHandler.NewWebSocketHandler(registry, bridges, log)
	dashboard := dashboardHandler.New(client, authProvider, log)
	resumes := resumeHandler.New(client, authProvider, log)

	r.Route("/api", func(api chi.Router) {
		sessions.RegisterRoutes(api)
		speechBridge.RegisterRoutes(api)
		dashboard.RegisterRoutes(api)
		resumes.RegisterRoutes(api)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
