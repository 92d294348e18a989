package session

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	sessionsvc "mockly/internal/session"
)

const (
	readDeadline = 60 * time.Second
	pingInterval = 30 * time.Second
)

// WebSocketHandler carries the browser speech bridge: recognition results
// and synthesis callbacks flow in, speak and listen commands flow out.
type WebSocketHandler struct {
	registry *sessionsvc.Registry
	bridges  *Bridges
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewWebSocketHandler creates the speech bridge handler.
func NewWebSocketHandler(registry *sessionsvc.Registry, bridges *Bridges, log *zap.Logger) *WebSocketHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebSocketHandler{
		registry: registry,
		bridges:  bridges,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket route.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/session/{sessionID}/speech", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.registry.Get(sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	bridge, ok := h.bridges.Get(sessionID)
	if !ok {
		http.Error(w, "session has no speech bridge", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.log.Info("speech bridge connected", zap.String("sessionId", sessionID))
	bridge.Attach(conn)
	defer bridge.Detach(conn)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	go h.pingLoop(ctx, conn)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket read error", zap.String("sessionId", sessionID), zap.Error(err))
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(readDeadline))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.log.Warn("session mismatch on speech bridge",
				zap.String("sessionId", sessionID),
				zap.String("got", msg.SessionID),
			)
			continue
		}

		bridge.HandleInbound(msg.Type, msg.Data)
	}
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
