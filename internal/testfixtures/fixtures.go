package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/meeting-negotiator/internal/persistence"
)

var (
	connectionCounter uint64
	sessionCounter    uint64
	messageCounter    uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// AllScopes lists every capability a permission fixture grants by default.
func AllScopes() []string {
	return []string{"read-availability", "propose-times", "auto-confirm", "confirm-with-approval"}
}

// ConnectionFixture represents a deterministic connection record plus the
// permission grants of both participants.
type ConnectionFixture struct {
	Connection  persistence.Connection
	Permissions []persistence.Permission
}

// ConnectionOption configures the generated connection fixture.
type ConnectionOption func(*ConnectionFixture)

// WithStatus overrides the connection lifecycle status.
func WithStatus(status persistence.ConnectionStatus) ConnectionOption {
	return func(fixture *ConnectionFixture) {
		fixture.Connection.Status = status
	}
}

// WithScopes overrides the scopes granted by the given participant.
func WithScopes(grantorID string, scopes ...string) ConnectionOption {
	return func(fixture *ConnectionFixture) {
		for i := range fixture.Permissions {
			if fixture.Permissions[i].GrantorID == grantorID {
				fixture.Permissions[i].Scopes = scopes
			}
		}
	}
}

// WithConstraints overrides the constraints attached by the given participant.
func WithConstraints(grantorID string, constraints map[string]any) ConnectionOption {
	return func(fixture *ConnectionFixture) {
		for i := range fixture.Permissions {
			if fixture.Permissions[i].GrantorID == grantorID {
				fixture.Permissions[i].Constraints = constraints
			}
		}
	}
}

// NewConnectionFixture returns a deterministic active connection between two
// accounts, with both sides granting every scope and no constraints.
func NewConnectionFixture(initiatorID, counterpartID string, opts ...ConnectionOption) ConnectionFixture {
	idx := atomic.AddUint64(&connectionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)

	fixture := ConnectionFixture{
		Connection: persistence.Connection{
			ID:            fmt.Sprintf("conn-%03d", idx),
			InitiatorID:   initiatorID,
			CounterpartID: counterpartID,
			Status:        persistence.ConnectionActive,
			CreatedAt:     created,
			UpdatedAt:     created,
		},
	}
	for _, grantor := range []string{initiatorID, counterpartID} {
		fixture.Permissions = append(fixture.Permissions, persistence.Permission{
			ConnectionID: fixture.Connection.ID,
			GrantorID:    grantor,
			Scopes:       AllScopes(),
			Constraints:  map[string]any{},
			UpdatedAt:    created,
		})
	}

	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// NewSessionFixture returns a deterministic negotiation session owned by the
// given connection.
func NewSessionFixture(connection persistence.Connection, status persistence.SessionStatus) persistence.NegotiationSession {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)

	return persistence.NegotiationSession{
		ID:            fmt.Sprintf("sess-%03d", idx),
		ConnectionID:  connection.ID,
		InitiatorID:   connection.InitiatorID,
		CounterpartID: connection.CounterpartID,
		Status:        status,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

// NewProposalMessageFixture returns a deterministic proposal message with the
// requested number of hour-long candidates starting at ReferenceTime.
func NewProposalMessageFixture(sessionID, senderID string, candidates int) persistence.Message {
	idx := atomic.AddUint64(&messageCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Second)

	proposals := make([]persistence.ProposalWindow, 0, candidates)
	for i := 0; i < candidates; i++ {
		start := referenceTime.Add(time.Duration(24+i) * time.Hour)
		proposals = append(proposals, persistence.ProposalWindow{
			Start:    start,
			End:      start.Add(time.Hour),
			Timezone: "UTC",
		})
	}

	return persistence.Message{
		ID:        fmt.Sprintf("msg-%03d", idx),
		SessionID: sessionID,
		SenderID:  senderID,
		Kind:      persistence.MessageProposal,
		Proposals: proposals,
		CreatedAt: created,
	}
}
