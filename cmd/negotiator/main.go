package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/meeting-negotiator/internal/application"
	"github.com/example/meeting-negotiator/internal/availability"
	"github.com/example/meeting-negotiator/internal/calendar"
	"github.com/example/meeting-negotiator/internal/config"
	httptransport "github.com/example/meeting-negotiator/internal/http"
	"github.com/example/meeting-negotiator/internal/logging"
	"github.com/example/meeting-negotiator/internal/persistence/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(os.Stdout, logging.Format(cfg.LogFormat), logLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Error("failed to reach storage", "error", err)
		os.Exit(1)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	connectionRepo := sqlite.NewConnectionRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)
	messageRepo := sqlite.NewMessageRepository(pool)
	notificationRepo := sqlite.NewNotificationRepository(pool)
	idempotencyRepo := sqlite.NewIdempotencyRepository(pool)

	provider, err := buildCalendarProvider(cfg)
	if err != nil {
		logger.Error("failed to build calendar provider", "error", err)
		os.Exit(1)
	}

	resolver := availability.NewResolver(provider, now, cfg.ProposalHorizon, cfg.ProposalStep, cfg.DefaultProposalLimit)
	bridge := application.NewNotificationBridge(notificationRepo, idGenerator, now, logger)
	negotiationService := application.NewNegotiationService(connectionRepo, sessionRepo, messageRepo, idempotencyRepo, resolver, bridge, idGenerator, now, logger)
	confirmationService := application.NewConfirmationService(connectionRepo, sessionRepo, messageRepo, idempotencyRepo, provider, idGenerator, now, logger)

	sessionHandler := httptransport.NewSessionHandler(negotiationService, confirmationService, logger)
	notificationHandler := httptransport.NewNotificationHandler(bridge, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Sessions:      sessionHandler,
		Notifications: notificationHandler,
	})

	handler := httptransport.RequestLogger(logger)(httptransport.RequirePrincipal(logger)(router))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("negotiation API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// buildCalendarProvider selects the provider implementation. Real providers
// are external collaborators configured by deployment; the stub keeps local
// runs self-contained.
func buildCalendarProvider(cfg config.Config) (calendar.Provider, error) {
	switch cfg.CalendarProvider {
	case "stub":
		return calendar.NewStubProvider(uuid.NewString), nil
	default:
		return nil, fmt.Errorf("unknown calendar provider %q", cfg.CalendarProvider)
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
