package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/meeting-negotiator/internal/persistence"
)

// MessageRepository implements persistence.MessageRepository on SQLite.
type MessageRepository struct {
	pool *ConnectionPool
}

// NewMessageRepository creates a SQLite-backed message repository.
func NewMessageRepository(pool *ConnectionPool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// CreateMessage stores a new session message.
func (r *MessageRepository) CreateMessage(ctx context.Context, message persistence.Message) error {
	if strings.TrimSpace(message.ID) == "" || message.SessionID == "" {
		return persistence.ErrConstraintViolation
	}

	var proposalsJSON sql.NullString
	if message.Proposals != nil {
		encoded, err := json.Marshal(message.Proposals)
		if err != nil {
			return fmt.Errorf("sqlite: failed to encode proposals: %w", err)
		}
		proposalsJSON = sql.NullString{String: string(encoded), Valid: true}
	}

	query := `
		INSERT INTO messages (id, session_id, sender_id, kind, body, proposals, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		message.ID,
		message.SessionID,
		message.SenderID,
		string(message.Kind),
		message.Body,
		proposalsJSON,
		formatTime(message.CreatedAt),
	)
	return mapError(err)
}

// LatestProposalMessage returns the most recent proposal message of a session.
func (r *MessageRepository) LatestProposalMessage(ctx context.Context, sessionID string) (persistence.Message, error) {
	query := `
		SELECT id, session_id, sender_id, kind, body, proposals, created_at
		FROM messages
		WHERE session_id = ? AND kind = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	row := r.pool.db.QueryRowContext(ctx, query, sessionID, string(persistence.MessageProposal))
	return scanMessage(row)
}

// ListMessages returns a session's messages in discovery order.
func (r *MessageRepository) ListMessages(ctx context.Context, sessionID string) ([]persistence.Message, error) {
	query := `
		SELECT id, session_id, sender_id, kind, body, proposals, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	messages := make([]persistence.Message, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return messages, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (persistence.Message, error) {
	var message persistence.Message
	var kind, createdAt string
	var proposalsJSON sql.NullString

	err := row.Scan(
		&message.ID,
		&message.SessionID,
		&message.SenderID,
		&kind,
		&message.Body,
		&proposalsJSON,
		&createdAt,
	)
	if err != nil {
		return persistence.Message{}, mapError(err)
	}

	message.Kind = persistence.MessageKind(kind)
	if proposalsJSON.Valid {
		if err := json.Unmarshal([]byte(proposalsJSON.String), &message.Proposals); err != nil {
			return persistence.Message{}, fmt.Errorf("sqlite: failed to decode proposals: %w", err)
		}
	}
	if message.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Message{}, err
	}

	return message, nil
}
