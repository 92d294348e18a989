// Package resume proxies resume upload and interview kickoff to the
// Interview Service.
package resume

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mockly/internal/auth"
	"mockly/internal/service/api"
	"mockly/pkg/utils"
)

// maxResumeBytes caps the multipart form held in memory during upload.
const maxResumeBytes = 10 << 20

// Handler serves the resume routes.
type Handler struct {
	client *api.Client
	auth   auth.Provider
	log    *zap.Logger
}

// New creates the resume handler.
func New(client *api.Client, authProvider auth.Provider, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{client: client, auth: authProvider, log: log}
}

// RegisterRoutes mounts the resume routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/resume", h.handleUpload)
	r.Post("/interviews/{sessionID}/start", h.handleStart)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	user, signedIn := h.auth.Current()
	if !signedIn {
		utils.RespondError(w, http.StatusUnauthorized, "sign in required")
		return
	}

	if err := r.ParseMultipartForm(maxResumeBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	result, err := h.client.UploadResume(r.Context(), user.ID, header.Filename, file)
	if err != nil {
		h.log.Warn("resume upload failed", zap.Error(err))
		utils.RespondError(w, http.StatusBadGateway, "failed to upload resume")
		return
	}

	h.log.Info("resume uploaded",
		zap.String("userId", user.ID),
		zap.String("sessionId", result.SessionID),
	)
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	if _, signedIn := h.auth.Current(); !signedIn {
		utils.RespondError(w, http.StatusUnauthorized, "sign in required")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if err := h.client.StartInterview(r.Context(), sessionID); err != nil {
		h.log.Warn("start interview failed", zap.String("sessionId", sessionID), zap.Error(err))
		utils.RespondError(w, http.StatusBadGateway, "failed to start interview")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "started", "sessionId": sessionID})
}
