package sqlite

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/example/meeting-negotiator/internal/persistence"
)

// IdempotencyRepository implements persistence.IdempotencyRepository on SQLite.
// Claimed keys are retained indefinitely; stale negotiations keep their
// replay protection.
type IdempotencyRepository struct {
	pool *ConnectionPool
}

// NewIdempotencyRepository creates a SQLite-backed idempotency repository.
func NewIdempotencyRepository(pool *ConnectionPool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

// RegisterIfAbsent claims the (key, operation) pair. The primary key on the
// table makes the first insert the only one that can succeed; a duplicate
// violation reports an already claimed key without side effects.
func (r *IdempotencyRepository) RegisterIfAbsent(ctx context.Context, key, operation string, createdAt time.Time) (bool, error) {
	if strings.TrimSpace(key) == "" || strings.TrimSpace(operation) == "" {
		return false, persistence.ErrConstraintViolation
	}

	query := `INSERT INTO idempotency_records (key, operation, created_at) VALUES (?, ?, ?)`
	_, err := r.pool.db.ExecContext(ctx, query, key, operation, formatTime(createdAt))
	if err != nil {
		mapped := mapError(err)
		if errors.Is(mapped, persistence.ErrDuplicate) {
			return false, nil
		}
		return false, mapped
	}

	return true, nil
}
