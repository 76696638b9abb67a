package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/meeting-negotiator/internal/application"
)

// PrincipalHeader carries the account identity resolved by the upstream
// gateway. Authentication itself happens outside this service.
const PrincipalHeader = "X-User-ID"

// IdempotencyKeyHeader carries the optional client supplied idempotency token.
const IdempotencyKeyHeader = "X-Idempotency-Key"

// RequirePrincipal rejects requests without a resolved caller identity and
// attaches the principal plus any idempotency token to the request context.
func RequirePrincipal(logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID := strings.TrimSpace(r.Header.Get(PrincipalHeader))
			if accountID == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingPrincipal)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), application.Principal{AccountID: accountID})
			if key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader)); key != "" {
				ctx = ContextWithIdempotencyKey(ctx, key)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a per-request logger to the context and records the
// request lifecycle.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}
