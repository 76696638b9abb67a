package http

import (
	"context"
	"log/slog"

	"github.com/example/meeting-negotiator/internal/application"
	"github.com/example/meeting-negotiator/internal/logging"
)

type contextKey string

const (
	principalContextKey      contextKey = "principal"
	sessionIDContextKey      contextKey = "session_id"
	notificationIDContextKey contextKey = "notification_id"
	idempotencyKeyContextKey contextKey = "idempotency_key"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithSessionID injects the session identifier resolved from the request path.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}

// SessionIDFromContext extracts a session identifier previously associated with the context.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDContextKey).(string)
	return id, ok
}

// ContextWithNotificationID injects the notification identifier resolved from the request path.
func ContextWithNotificationID(ctx context.Context, notificationID string) context.Context {
	return context.WithValue(ctx, notificationIDContextKey, notificationID)
}

// NotificationIDFromContext extracts a notification identifier previously associated with the context.
func NotificationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(notificationIDContextKey).(string)
	return id, ok
}

// ContextWithIdempotencyKey injects the client supplied idempotency token.
func ContextWithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyContextKey, key)
}

// IdempotencyKeyFromContext extracts the client supplied idempotency token.
func IdempotencyKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKeyContextKey).(string)
	return key, ok
}

// ContextWithLogger re-exports the logging package helper for middleware use.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext re-exports the logging package helper for handler use.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
