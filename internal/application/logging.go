package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/meeting-negotiator/internal/calendar"
	"github.com/example/meeting-negotiator/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConnectionInactive):
		return "connection_inactive"
	case errors.Is(err, ErrSessionTerminal):
		return "session_terminal"
	case errors.Is(err, ErrIdempotencyReplay):
		return "idempotency_replay"
	case errors.Is(err, ErrConflict):
		return "conflict"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	var pErr *calendar.ProviderError
	if errors.As(err, &pErr) {
		return "provider_" + string(pErr.Kind)
	}

	return "unexpected"
}
