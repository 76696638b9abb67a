package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/meeting-negotiator/internal/availability"
	"github.com/example/meeting-negotiator/internal/persistence"
	"github.com/example/meeting-negotiator/internal/timeslot"
)

// memoryStore backs every store interface the services consume with
// mutex-guarded maps, so tests can exercise concurrent paths against it.
type memoryStore struct {
	mu            sync.Mutex
	connections   map[string]persistence.Connection
	permissions   map[string]persistence.Permission
	sessions      map[string]persistence.NegotiationSession
	messages      map[string][]persistence.Message
	notifications map[string]persistence.Notification
	idempotency   map[string]persistence.IdempotencyRecord

	createNotificationErr error
	markActionabilityErr  error
	createMessageErr      error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		connections:   make(map[string]persistence.Connection),
		permissions:   make(map[string]persistence.Permission),
		sessions:      make(map[string]persistence.NegotiationSession),
		messages:      make(map[string][]persistence.Message),
		notifications: make(map[string]persistence.Notification),
		idempotency:   make(map[string]persistence.IdempotencyRecord),
	}
}

func permissionKey(connectionID, grantorID string) string {
	return connectionID + "/" + grantorID
}

func (m *memoryStore) putConnection(connection persistence.Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[connection.ID] = connection
}

func (m *memoryStore) putPermission(permission persistence.Permission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permissions[permissionKey(permission.ConnectionID, permission.GrantorID)] = permission
}

func (m *memoryStore) putSession(session persistence.NegotiationSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
}

func (m *memoryStore) sessionByID(id string) persistence.NegotiationSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

func (m *memoryStore) messagesOf(sessionID string) []persistence.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]persistence.Message(nil), m.messages[sessionID]...)
}

func (m *memoryStore) notificationByID(id string) persistence.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifications[id]
}

func (m *memoryStore) GetConnection(ctx context.Context, id string) (persistence.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	connection, ok := m.connections[id]
	if !ok {
		return persistence.Connection{}, persistence.ErrNotFound
	}
	return connection, nil
}

func (m *memoryStore) GetPermission(ctx context.Context, connectionID, grantorID string) (persistence.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	permission, ok := m.permissions[permissionKey(connectionID, grantorID)]
	if !ok {
		return persistence.Permission{}, persistence.ErrNotFound
	}
	return permission, nil
}

func (m *memoryStore) CreateSession(ctx context.Context, session persistence.NegotiationSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; ok {
		return persistence.ErrDuplicate
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *memoryStore) GetSession(ctx context.Context, id string) (persistence.NegotiationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return persistence.NegotiationSession{}, persistence.ErrNotFound
	}
	return session, nil
}

func (m *memoryStore) UpdateSessionStatus(ctx context.Context, id string, status persistence.SessionStatus, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return persistence.ErrNotFound
	}
	switch session.Status {
	case persistence.SessionConfirmed, persistence.SessionExpired, persistence.SessionCancelled:
		return persistence.ErrStaleState
	}
	session.Status = status
	session.UpdatedAt = updatedAt
	m.sessions[id] = session
	return nil
}

func (m *memoryStore) SetOutcomeIfAbsent(ctx context.Context, sessionID string, outcome persistence.Outcome, updatedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return false, persistence.ErrNotFound
	}
	if session.Outcome != nil {
		return false, nil
	}
	session.Outcome = &outcome
	session.Status = persistence.SessionConfirmed
	session.UpdatedAt = updatedAt
	m.sessions[sessionID] = session
	return true, nil
}

func (m *memoryStore) CreateMessage(ctx context.Context, message persistence.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createMessageErr != nil {
		return m.createMessageErr
	}
	m.messages[message.SessionID] = append(m.messages[message.SessionID], message)
	return nil
}

func (m *memoryStore) LatestProposalMessage(ctx context.Context, sessionID string) (persistence.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.messages[sessionID]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Kind == persistence.MessageProposal {
			return entries[i], nil
		}
	}
	return persistence.Message{}, persistence.ErrNotFound
}

func (m *memoryStore) ListMessages(ctx context.Context, sessionID string) ([]persistence.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]persistence.Message(nil), m.messages[sessionID]...), nil
}

func (m *memoryStore) RegisterIfAbsent(ctx context.Context, key, operation string, createdAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	composite := key + "/" + operation
	if _, ok := m.idempotency[composite]; ok {
		return false, nil
	}
	m.idempotency[composite] = persistence.IdempotencyRecord{Key: key, Operation: operation, CreatedAt: createdAt}
	return true, nil
}

func (m *memoryStore) CreateNotification(ctx context.Context, notification persistence.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createNotificationErr != nil {
		return m.createNotificationErr
	}
	m.notifications[notification.ID] = notification
	return nil
}

func (m *memoryStore) GetNotification(ctx context.Context, id string) (persistence.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	notification, ok := m.notifications[id]
	if !ok {
		return persistence.Notification{}, persistence.ErrNotFound
	}
	return notification, nil
}

func (m *memoryStore) MarkActionability(ctx context.Context, id string, requiresAction bool, actionRef string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markActionabilityErr != nil {
		return m.markActionabilityErr
	}
	notification, ok := m.notifications[id]
	if !ok {
		return persistence.ErrNotFound
	}
	notification.RequiresAction = requiresAction
	notification.ActionRef = actionRef
	notification.UpdatedAt = updatedAt
	m.notifications[id] = notification
	return nil
}

func (m *memoryStore) ResolveNotification(ctx context.Context, id string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	notification, ok := m.notifications[id]
	if !ok {
		return persistence.ErrNotFound
	}
	notification.Resolved = true
	notification.UpdatedAt = updatedAt
	m.notifications[id] = notification
	return nil
}

// stubGenerator returns a canned candidate list or a canned error.
type stubGenerator struct {
	windows []timeslot.Window
	err     error

	mu       sync.Mutex
	requests []availability.MutualProposalParams
}

func (g *stubGenerator) GenerateMutualProposals(ctx context.Context, params availability.MutualProposalParams) ([]timeslot.Window, error) {
	g.mu.Lock()
	g.requests = append(g.requests, params)
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	return g.windows, nil
}

// stubNotifier records pending-decision notifications and optionally fails.
type stubNotifier struct {
	mu     sync.Mutex
	calls  []PendingDecisionParams
	err    error
	nextID int
}

func (n *stubNotifier) NotifyPendingDecision(ctx context.Context, params PendingDecisionParams) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, params)
	if n.err != nil {
		return "", n.err
	}
	n.nextID++
	return fmt.Sprintf("notification-%d", n.nextID), nil
}

