package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	sessionsvc "mockly/internal/session"
	"mockly/pkg/utils"
)

// Handler is the HTTP surface of the interview session controller.
type Handler struct {
	registry *sessionsvc.Registry
	bridges  *Bridges
	log      *zap.Logger
}

// New creates the session handler.
func New(registry *sessionsvc.Registry, bridges *Bridges, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{registry: registry, bridges: bridges, log: log}
}

// RegisterRoutes mounts the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleOpenSession)
	r.Get("/session/{sessionID}", h.handleState)
	r.Post("/session/{sessionID}/message", h.handleMessage)
	r.Post("/session/{sessionID}/listen", h.handleListen)
	r.Post("/session/{sessionID}/controls", h.handleControls)
	r.Post("/session/{sessionID}/end", h.handleEnd)
	r.Delete("/session/{sessionID}", h.handleCloseSession)
	r.Get("/session/{sessionID}/events", h.handleEvents)
}

func (h *Handler) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	ctrl, err := h.registry.Open(r.Context(), payload.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, sessionsvc.ErrSessionExists):
			utils.RespondError(w, http.StatusConflict, "session already open")
		case errors.Is(err, sessionsvc.ErrNotSignedIn):
			utils.RespondError(w, http.StatusUnauthorized, "sign in required")
		default:
			h.log.Error("open session failed", zap.Error(err))
			utils.RespondError(w, http.StatusInternalServerError, "failed to open session")
		}
		return
	}

	utils.RespondJSON(w, http.StatusCreated, ctrl.State())
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*sessionsvc.Controller, bool) {
	ctrl, err := h.registry.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return ctrl, true
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, ctrl.State())
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Text == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	ctrl.SubmitText(payload.Text)
	utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *Handler) handleListen(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch payload.Action {
	case "start":
		if err := ctrl.StartListening(); err != nil {
			// The user-visible notice already went out on the event stream.
			utils.RespondJSON(w, http.StatusOK, map[string]any{"listening": false, "reason": err.Error()})
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]any{"listening": true})
	case "stop":
		ctrl.StopListening()
		utils.RespondJSON(w, http.StatusOK, map[string]any{"listening": false})
	default:
		utils.RespondError(w, http.StatusBadRequest, "action must be start or stop")
	}
}

func (h *Handler) handleControls(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Control string `json:"control"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var enabled bool
	switch payload.Control {
	case "mic":
		enabled = ctrl.ToggleMic()
	case "video":
		enabled = ctrl.ToggleVideo()
	case "audio":
		enabled = ctrl.ToggleAudio()
	default:
		utils.RespondError(w, http.StatusBadRequest, "control must be mic, video, or audio")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"control": payload.Control, "enabled": enabled})
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := ctrl.End(r.Context()); err != nil {
		switch {
		case errors.Is(err, sessionsvc.ErrSubmissionInFlight):
			utils.RespondError(w, http.StatusConflict, "submission already in progress")
		case errors.Is(err, sessionsvc.ErrSessionCompleted):
			utils.RespondError(w, http.StatusConflict, "session already completed")
		default:
			utils.RespondError(w, http.StatusBadGateway, "failed to submit interview")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, ctrl.State())
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.registry.CloseSession(sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	h.bridges.Remove(sessionID)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// handleEvents streams controller events to the UI over SSE.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}

	flusher, flushable := w.(http.Flusher)
	if !flushable {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	// An initial snapshot lets a reconnecting client catch up on anything
	// the buffered event stream dropped.
	utils.SendSSEEvent(w, flusher, "snapshot", ctrl.State())

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ctrl.Events():
			utils.SendSSEEvent(w, flusher, event.Type, event)
		}
	}
}
