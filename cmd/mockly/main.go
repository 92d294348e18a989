package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mockly/internal/auth"
	"mockly/internal/config"
	"mockly/internal/handler"
	sessionHandler "mockly/internal/handler/session"
	"mockly/internal/logging"
	"mockly/internal/media"
	"mockly/internal/service/ai"
	"mockly/internal/service/api"
	"mockly/internal/session"
	"mockly/internal/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	authProvider := auth.NewTokenProvider(ctx, cfg.Auth, logger)
	client := api.New(cfg.Service, logger)

	var followUp session.FollowUpGenerator
	if cfg.AI.Enabled() {
		interviewer, err := ai.NewInterviewer(ctx, cfg.AI, logger)
		if err != nil {
			logger.Warn("follow-up model unavailable, using canned follow-ups", zap.Error(err))
		} else {
			followUp = interviewer
			logger.Info("follow-up model initialized", zap.String("model", cfg.AI.Model))
		}
	} else {
		logger.Info("ark credentials not configured, follow-ups are canned")
	}

	bridges := sessionHandler.NewBridges(logger)
	registry := session.NewRegistry(func(sessionID string) *session.Controller {
		bridge := bridges.Create(sessionID)
		capture := speech.NewCapture(bridge, logger)
		speaker := speech.NewSpeaker(bridge, cfg.Speech, logger)
		bridge.Bind(capture, speaker)

		return session.New(session.Deps{
			SessionID: sessionID,
			Auth:      authProvider,
			Service:   client,
			Capture:   capture,
			Speaker:   speaker,
			Device:    media.Acquire(ctx, cfg.Media, logger),
			FollowUp:  followUp,
			Pace:      cfg.Pace,
			LoginURL:  cfg.Auth.LoginURL,
			Logger:    logger,
		})
	}, logger)
	defer registry.Shutdown()

	router := handler.NewRouter(registry, bridges, client, authProvider, logger)

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("mockly gateway listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
