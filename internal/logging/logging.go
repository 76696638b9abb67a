package logging

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

type contextKey struct{}

// ContextWithLogger returns a derived context that carries the provided logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a logger previously attached to the context.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(contextKey{}).(*slog.Logger)
	return logger
}

// Format selects the handler used for log output.
type Format string

const (
	// FormatJSON emits structured JSON records, the production default.
	FormatJSON Format = "json"
	// FormatText emits colorised console records for local development.
	FormatText Format = "text"
)

// NewLogger builds a slog.Logger writing to w in the requested format.
// Unknown formats fall back to JSON.
func NewLogger(w io.Writer, format Format, level slog.Level) *slog.Logger {
	switch format {
	case FormatText:
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		}))
	default:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
}
