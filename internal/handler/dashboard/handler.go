// Package dashboard proxies the read-only reporting endpoints of the
// Interview Service for the signed-in user.
package dashboard

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mockly/internal/auth"
	"mockly/internal/service/api"
	"mockly/pkg/utils"
)

// Handler serves the dashboard data routes.
type Handler struct {
	client *api.Client
	auth   auth.Provider
	log    *zap.Logger
}

// New creates the dashboard handler.
func New(client *api.Client, authProvider auth.Provider, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{client: client, auth: authProvider, log: log}
}

// RegisterRoutes mounts the dashboard routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.handleStats)
	r.Get("/evaluations", h.handleEvaluations)
	r.Get("/scores", h.handleScores)
	r.Get("/interviews", h.handleInterviews)
	r.Get("/interviews/{sessionID}", h.handleReport)
}

func (h *Handler) currentUser(w http.ResponseWriter) (auth.User, bool) {
	user, signedIn := h.auth.Current()
	if !signedIn {
		utils.RespondError(w, http.StatusUnauthorized, "sign in required")
		return auth.User{}, false
	}
	return user, true
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w)
	if !ok {
		return
	}

	stats, err := h.client.UserStats(r.Context(), user.ID)
	if err != nil {
		h.log.Warn("user stats fetch failed", zap.Error(err))
		utils.RespondError(w, http.StatusBadGateway, "failed to load stats")
		return
	}
	utils.RespondJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleEvaluations(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w)
	if !ok {
		return
	}

	evaluations, err := h.client.PerformanceEvaluations(r.Context(), user.ID)
	if err != nil {
		h.log.Warn("evaluations fetch failed", zap.Error(err))
		utils.RespondError(w, http.StatusBadGateway, "failed to load evaluations")
		return
	}
	utils.RespondJSON(w, http.StatusOK, evaluations)
}

func (h *Handler) handleScores(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w)
	if !ok {
		return
	}

	scores, err := h.client.TestScores(r.Context(), user.ID)
	if err != nil {
		h.log.Warn("score history fetch failed", zap.Error(err))
		utils.RespondError(w, http.StatusBadGateway, "failed to load score history")
		return
	}
	utils.RespondJSON(w, http.StatusOK, scores)
}

func (h *Handler) handleInterviews(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w)
	if !ok {
		return
	}

	interviews, err := h.client.MockInterviews(r.Context(), user.ID)
	if err != nil {
		h.log.Warn("interview list fetch failed", zap.Error(err))
		utils.RespondError(w, http.StatusBadGateway, "failed to load interviews")
		return
	}
	utils.RespondJSON(w, http.StatusOK, interviews)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w)
	if !ok {
		return
	}

	report, err := h.client.FindReport(r.Context(), user.ID, chi.URLParam(r, "sessionID"))
	if err != nil {
		if errors.Is(err, api.ErrReportNotFound) {
			utils.RespondError(w, http.StatusNotFound, "no report for this session")
			return
		}
		h.log.Warn("report fetch failed", zap.Error(err))
		utils.RespondError(w, http.StatusBadGateway, "failed to load report")
		return
	}
	utils.RespondJSON(w, http.StatusOK, report)
}
