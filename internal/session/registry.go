package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)

// Factory builds a controller for a session id. The registry owns the
// returned controller's lifecycle.
type Factory func(sessionID string) *Controller

// Registry tracks the live interview sessions hosted by this gateway. One
// controller per session id; controllers are created on open and torn down
// on close or shutdown.
type Registry struct {
	mu          sync.RWMutex
	controllers map[string]*Controller
	factory     Factory
	log         *zap.Logger
}

// NewRegistry bootstraps the in-memory session registry.
func NewRegistry(factory Factory, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		controllers: make(map[string]*Controller),
		factory:     factory,
		log:         log,
	}
}

// Open creates and starts a controller for the session. An empty id gets a
// fresh one. Opening an id that is already live is an error; the existing
// session keeps running.
func (r *Registry) Open(ctx context.Context, sessionID string) (*Controller, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	r.mu.Lock()
	if _, ok := r.controllers[sessionID]; ok {
		r.mu.Unlock()
		return nil, ErrSessionExists
	}
	ctrl := r.factory(sessionID)
	r.controllers[sessionID] = ctrl
	r.mu.Unlock()

	if err := ctrl.Start(ctx); err != nil {
		r.mu.Lock()
		delete(r.controllers, sessionID)
		r.mu.Unlock()
		ctrl.Close()
		return nil, err
	}

	r.log.Info("session opened", zap.String("sessionId", sessionID))
	return ctrl, nil
}

// Get retrieves a live controller by session id.
func (r *Registry) Get(sessionID string) (*Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctrl, ok := r.controllers[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}

// CloseSession tears a session down and removes it.
func (r *Registry) CloseSession(sessionID string) error {
	r.mu.Lock()
	ctrl, ok := r.controllers[sessionID]
	delete(r.controllers, sessionID)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	ctrl.Close()
	r.log.Info("session closed", zap.String("sessionId", sessionID))
	return nil
}

// Shutdown closes every live session.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	controllers := make([]*Controller, 0, len(r.controllers))
	for _, ctrl := range r.controllers {
		controllers = append(controllers, ctrl)
	}
	r.controllers = make(map[string]*Controller)
	r.mu.Unlock()

	for _, ctrl := range controllers {
		ctrl.Close()
	}
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.controllers)
}
