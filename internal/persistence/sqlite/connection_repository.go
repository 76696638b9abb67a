package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/example/meeting-negotiator/internal/persistence"
)

// ConnectionRepository implements persistence.ConnectionRepository on SQLite.
type ConnectionRepository struct {
	pool *ConnectionPool
}

// NewConnectionRepository creates a SQLite-backed connection repository.
func NewConnectionRepository(pool *ConnectionPool) *ConnectionRepository {
	return &ConnectionRepository{pool: pool}
}

// CreateConnection stores a new connection.
func (r *ConnectionRepository) CreateConnection(ctx context.Context, connection persistence.Connection) error {
	if strings.TrimSpace(connection.ID) == "" {
		return persistence.ErrConstraintViolation
	}
	if connection.InitiatorID == "" || connection.CounterpartID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO connections (id, initiator_id, counterpart_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		connection.ID,
		connection.InitiatorID,
		connection.CounterpartID,
		string(connection.Status),
		formatTime(connection.CreatedAt),
		formatTime(connection.UpdatedAt),
	)
	return mapError(err)
}

// GetConnection retrieves a connection by ID.
func (r *ConnectionRepository) GetConnection(ctx context.Context, id string) (persistence.Connection, error) {
	query := `
		SELECT id, initiator_id, counterpart_id, status, created_at, updated_at
		FROM connections
		WHERE id = ?
	`

	var connection persistence.Connection
	var status, createdAt, updatedAt string
	err := r.pool.db.QueryRowContext(ctx, query, id).Scan(
		&connection.ID,
		&connection.InitiatorID,
		&connection.CounterpartID,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Connection{}, mapError(err)
	}

	connection.Status = persistence.ConnectionStatus(status)
	if connection.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Connection{}, err
	}
	if connection.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Connection{}, err
	}

	return connection, nil
}

// UpdateConnectionStatus transitions a connection's lifecycle status.
func (r *ConnectionRepository) UpdateConnectionStatus(ctx context.Context, id string, status persistence.ConnectionStatus, updatedAt time.Time) error {
	query := `UPDATE connections SET status = ?, updated_at = ? WHERE id = ?`
	result, err := r.pool.db.ExecContext(ctx, query, string(status), formatTime(updatedAt), id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetPermission retrieves the permission record a participant granted within
// a connection.
func (r *ConnectionRepository) GetPermission(ctx context.Context, connectionID, grantorID string) (persistence.Permission, error) {
	query := `
		SELECT connection_id, grantor_id, scopes, constraints, updated_at
		FROM permissions
		WHERE connection_id = ? AND grantor_id = ?
	`

	var permission persistence.Permission
	var scopesJSON, constraintsJSON, updatedAt string
	err := r.pool.db.QueryRowContext(ctx, query, connectionID, grantorID).Scan(
		&permission.ConnectionID,
		&permission.GrantorID,
		&scopesJSON,
		&constraintsJSON,
		&updatedAt,
	)
	if err != nil {
		return persistence.Permission{}, mapError(err)
	}

	if err := json.Unmarshal([]byte(scopesJSON), &permission.Scopes); err != nil {
		return persistence.Permission{}, fmt.Errorf("sqlite: failed to decode scopes: %w", err)
	}
	if err := json.Unmarshal([]byte(constraintsJSON), &permission.Constraints); err != nil {
		return persistence.Permission{}, fmt.Errorf("sqlite: failed to decode constraints: %w", err)
	}
	if permission.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Permission{}, err
	}

	return permission, nil
}

// PutPermission inserts or replaces a participant's permission record.
func (r *ConnectionRepository) PutPermission(ctx context.Context, permission persistence.Permission) error {
	if permission.ConnectionID == "" || permission.GrantorID == "" {
		return persistence.ErrConstraintViolation
	}

	scopes := permission.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	constraints := permission.Constraints
	if constraints == nil {
		constraints = map[string]any{}
	}

	scopesJSON, err := json.Marshal(scopes)
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode scopes: %w", err)
	}
	constraintsJSON, err := json.Marshal(constraints)
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode constraints: %w", err)
	}

	query := `
		INSERT INTO permissions (connection_id, grantor_id, scopes, constraints, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (connection_id, grantor_id) DO UPDATE SET
			scopes = excluded.scopes,
			constraints = excluded.constraints,
			updated_at = excluded.updated_at
	`
	_, err = r.pool.db.ExecContext(ctx, query,
		permission.ConnectionID,
		permission.GrantorID,
		string(scopesJSON),
		string(constraintsJSON),
		formatTime(permission.UpdatedAt),
	)
	return mapError(err)
}
