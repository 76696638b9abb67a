package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS connections (
		id TEXT PRIMARY KEY,
		initiator_id TEXT NOT NULL,
		counterpart_id TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending', 'active', 'revoked')),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS permissions (
		connection_id TEXT NOT NULL REFERENCES connections(id) ON DELETE CASCADE,
		grantor_id TEXT NOT NULL,
		scopes TEXT NOT NULL,
		constraints TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (connection_id, grantor_id)
	)`,
	`CREATE TABLE IF NOT EXISTS negotiation_sessions (
		id TEXT PRIMARY KEY,
		connection_id TEXT NOT NULL REFERENCES connections(id),
		initiator_id TEXT NOT NULL,
		counterpart_id TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending', 'negotiating', 'confirmed', 'expired', 'cancelled')),
		ttl_expires_at TEXT,
		outcome TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_connection ON negotiation_sessions(connection_id)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES negotiation_sessions(id) ON DELETE CASCADE,
		sender_id TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('proposal', 'confirmation', 'note')),
		body TEXT NOT NULL DEFAULT '',
		proposals TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		recipient_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		session_id TEXT NOT NULL DEFAULT '',
		message_id TEXT NOT NULL DEFAULT '',
		requires_action INTEGER NOT NULL DEFAULT 0,
		action_ref TEXT NOT NULL DEFAULT '',
		resolved INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS idempotency_records (
		key TEXT NOT NULL,
		operation TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (key, operation)
	)`,
}

// Migrate creates the schema when missing. Statements are idempotent so the
// service can run it unconditionally at startup; they are applied in a single
// transaction so a failed run leaves no half-created schema behind.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	return cp.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, statement := range schemaStatements {
			if _, err := tx.ExecContext(ctx, statement); err != nil {
				return fmt.Errorf("sqlite: migration failed: %w", err)
			}
		}
		return nil
	})
}
