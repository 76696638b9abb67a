package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/meeting-negotiator/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository on SQLite.
//
// The outcome column doubles as the compare-and-swap guard: it starts NULL
// and is only ever written by the single conditional UPDATE in
// SetOutcomeIfAbsent. Concurrent confirmation attempts therefore resolve in
// the database, not in application code.
type SessionRepository struct {
	pool *ConnectionPool
}

// NewSessionRepository creates a SQLite-backed session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// CreateSession stores a new negotiation session.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.NegotiationSession) error {
	if strings.TrimSpace(session.ID) == "" || session.ConnectionID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO negotiation_sessions
			(id, connection_id, initiator_id, counterpart_id, status, ttl_expires_at, outcome, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		session.ID,
		session.ConnectionID,
		session.InitiatorID,
		session.CounterpartID,
		string(session.Status),
		formatTimePtr(session.TTLExpiresAt),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	return mapError(err)
}

// GetSession retrieves a session by ID.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.NegotiationSession, error) {
	query := `
		SELECT id, connection_id, initiator_id, counterpart_id, status, ttl_expires_at, outcome, created_at, updated_at
		FROM negotiation_sessions
		WHERE id = ?
	`

	var session persistence.NegotiationSession
	var status, createdAt, updatedAt string
	var ttlExpiresAt, outcomeJSON sql.NullString
	err := r.pool.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.ConnectionID,
		&session.InitiatorID,
		&session.CounterpartID,
		&status,
		&ttlExpiresAt,
		&outcomeJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.NegotiationSession{}, mapError(err)
	}

	session.Status = persistence.SessionStatus(status)
	if session.TTLExpiresAt, err = parseTimePtr(ttlExpiresAt); err != nil {
		return persistence.NegotiationSession{}, err
	}
	if outcomeJSON.Valid {
		var outcome persistence.Outcome
		if err := json.Unmarshal([]byte(outcomeJSON.String), &outcome); err != nil {
			return persistence.NegotiationSession{}, fmt.Errorf("sqlite: failed to decode outcome: %w", err)
		}
		session.Outcome = &outcome
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.NegotiationSession{}, err
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.NegotiationSession{}, err
	}

	return session, nil
}

// UpdateSessionStatus transitions a session's status without touching the
// outcome. Sessions that already reached a terminal status are left alone so
// a racing cancel can never overwrite a settled confirmation.
func (r *SessionRepository) UpdateSessionStatus(ctx context.Context, id string, status persistence.SessionStatus, updatedAt time.Time) error {
	query := `
		UPDATE negotiation_sessions
		SET status = ?, updated_at = ?
		WHERE id = ? AND status NOT IN (?, ?, ?)
	`
	result, err := r.pool.db.ExecContext(ctx, query,
		string(status),
		formatTime(updatedAt),
		id,
		string(persistence.SessionConfirmed),
		string(persistence.SessionExpired),
		string(persistence.SessionCancelled),
	)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to read rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := r.GetSession(ctx, id); err != nil {
			return err
		}
		return persistence.ErrStaleState
	}
	return nil
}

// SetOutcomeIfAbsent atomically writes the outcome and flips the session to
// confirmed, succeeding only when no outcome exists yet. A false return with
// nil error means another writer already won.
func (r *SessionRepository) SetOutcomeIfAbsent(ctx context.Context, sessionID string, outcome persistence.Outcome, updatedAt time.Time) (bool, error) {
	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to encode outcome: %w", err)
	}

	query := `
		UPDATE negotiation_sessions
		SET outcome = ?, status = ?, updated_at = ?
		WHERE id = ? AND outcome IS NULL
	`
	result, err := r.pool.db.ExecContext(ctx, query,
		string(outcomeJSON),
		string(persistence.SessionConfirmed),
		formatTime(updatedAt),
		sessionID,
	)
	if err != nil {
		return false, mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to read rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	// Distinguish a lost race from a missing session.
	if _, err := r.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return false, persistence.ErrNotFound
		}
		return false, err
	}
	return false, nil
}
