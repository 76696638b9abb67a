package application

import (
	"context"
	"errors"
	"slices"

	"github.com/example/meeting-negotiator/internal/persistence"
	"github.com/example/meeting-negotiator/internal/timeslot"
)

// authorizeSessionAction re-validates, at call time, that the caller is a
// session participant, that the underlying connection is still active, and
// that the counterpart's current permission grant carries every required
// scope. Nothing here is cached: concurrent revocation takes effect on the
// next mutating call.
func authorizeSessionAction(ctx context.Context, connections ConnectionStore, session persistence.NegotiationSession, callerID string, requiredScopes ...string) (persistence.Connection, persistence.Permission, error) {
	view := sessionFromRecord(session)
	if !view.Participant(callerID) {
		return persistence.Connection{}, persistence.Permission{}, ErrUnauthorized
	}

	connection, err := connections.GetConnection(ctx, session.ConnectionID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Connection{}, persistence.Permission{}, ErrConnectionInactive
		}
		return persistence.Connection{}, persistence.Permission{}, err
	}
	if connection.Status != persistence.ConnectionActive {
		return persistence.Connection{}, persistence.Permission{}, ErrConnectionInactive
	}

	// The scopes the caller acts under are the ones the counterpart granted.
	grantorID := view.CounterpartOf(callerID)
	permission, err := connections.GetPermission(ctx, session.ConnectionID, grantorID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Connection{}, persistence.Permission{}, ErrUnauthorized
		}
		return persistence.Connection{}, persistence.Permission{}, err
	}

	for _, scope := range requiredScopes {
		if !slices.Contains(permission.Scopes, scope) {
			return persistence.Connection{}, persistence.Permission{}, ErrUnauthorized
		}
	}

	return connection, permission, nil
}

// hasAnyScope reports whether the permission grants at least one of the scopes.
func hasAnyScope(permission persistence.Permission, scopes ...string) bool {
	for _, scope := range scopes {
		if slices.Contains(permission.Scopes, scope) {
			return true
		}
	}
	return false
}

// participantConstraints loads and parses the constraints a participant
// attached to their own grant. A missing grant record means the participant
// imposed no rules of their own.
func participantConstraints(ctx context.Context, connections ConnectionStore, connectionID, grantorID string) (timeslot.Constraints, error) {
	permission, err := connections.GetPermission(ctx, connectionID, grantorID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return timeslot.Constraints{}, nil
		}
		return timeslot.Constraints{}, err
	}
	return timeslot.ParseConstraints(permission.Constraints)
}
