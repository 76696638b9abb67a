package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/meeting-negotiator/internal/persistence"
	"github.com/example/meeting-negotiator/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Connections   persistence.ConnectionRepository
	Sessions      persistence.SessionRepository
	Messages      persistence.MessageRepository
	Notifications persistence.NotificationRepository
	Idempotency   persistence.IdempotencyRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// also registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "negotiator.db")

	pool, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Connections:   sqlite.NewConnectionRepository(pool),
		Sessions:      sqlite.NewSessionRepository(pool),
		Messages:      sqlite.NewMessageRepository(pool),
		Notifications: sqlite.NewNotificationRepository(pool),
		Idempotency:   sqlite.NewIdempotencyRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
