package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"mockly/internal/auth"
	"mockly/internal/config"
	"mockly/internal/speech"
)

func testFactory(svc *fakeInterviewService) Factory {
	return func(sessionID string) *Controller {
		return New(Deps{
			SessionID: sessionID,
			Auth:      auth.NewStaticProvider(auth.User{ID: "user-1"}),
			Service:   svc,
			Capture:   speech.NewCapture(nil, nil),
			Speaker:   speech.NewSpeaker(nil, config.SpeechConfig{}, nil),
			Pace:      config.DefaultPace(),
			Schedule:  func(time.Duration, func()) {},
		})
	}
}

func TestRegistryOpenAndGet(t *testing.T) {
	registry := NewRegistry(testFactory(&fakeInterviewService{}), nil)
	defer registry.Shutdown()

	ctrl, err := registry.Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ctrl.SessionID() == "" {
		t.Fatal("expected a generated session id")
	}

	got, err := registry.Get(ctrl.SessionID())
	if err != nil || got != ctrl {
		t.Fatalf("Get returned %v, %v", got, err)
	}

	if _, err := registry.Open(context.Background(), ctrl.SessionID()); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
}

func TestRegistryCloseSession(t *testing.T) {
	registry := NewRegistry(testFactory(&fakeInterviewService{}), nil)
	defer registry.Shutdown()

	ctrl, err := registry.Open(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := registry.CloseSession(ctrl.SessionID()); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if _, err := registry.Get(ctrl.SessionID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after close, got %v", err)
	}
	if err := registry.CloseSession(ctrl.SessionID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("closing twice should report not found, got %v", err)
	}
}

func TestRegistryOpenFailureLeavesNoEntry(t *testing.T) {
	registry := NewRegistry(func(sessionID string) *Controller {
		return New(Deps{
			SessionID: sessionID,
			Auth:      auth.NewSignedOutProvider(),
			Service:   &fakeInterviewService{},
			Capture:   speech.NewCapture(nil, nil),
			Speaker:   speech.NewSpeaker(nil, config.SpeechConfig{}, nil),
			Pace:      config.DefaultPace(),
			Schedule:  func(time.Duration, func()) {},
		})
	}, nil)

	if _, err := registry.Open(context.Background(), "sess-1"); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("failed open must not leave a session, got %d", registry.Len())
	}
}
