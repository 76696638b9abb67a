package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/meeting-negotiator/internal/persistence"
	"github.com/example/meeting-negotiator/internal/testfixtures"
)

func seedConnection(t *testing.T, harness *testfixtures.SQLiteHarness, opts ...testfixtures.ConnectionOption) testfixtures.ConnectionFixture {
	t.Helper()

	fixture := testfixtures.NewConnectionFixture("alice", "bob", opts...)
	if err := harness.Connections.CreateConnection(context.Background(), fixture.Connection); err != nil {
		t.Fatalf("failed to seed connection: %v", err)
	}
	for _, permission := range fixture.Permissions {
		if err := harness.Connections.PutPermission(context.Background(), permission); err != nil {
			t.Fatalf("failed to seed permission: %v", err)
		}
	}
	return fixture
}

func seedSession(t *testing.T, harness *testfixtures.SQLiteHarness, fixture testfixtures.ConnectionFixture, status persistence.SessionStatus) persistence.NegotiationSession {
	t.Helper()

	session := testfixtures.NewSessionFixture(fixture.Connection, status)
	if err := harness.Sessions.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	return session
}

func TestConnectionRepository(t *testing.T) {
	t.Parallel()

	t.Run("round trips connections", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		fixture := seedConnection(t, harness)

		loaded, err := harness.Connections.GetConnection(context.Background(), fixture.Connection.ID)
		if err != nil {
			t.Fatalf("GetConnection returned error: %v", err)
		}
		if loaded.InitiatorID != "alice" || loaded.CounterpartID != "bob" {
			t.Fatalf("unexpected participants: %+v", loaded)
		}
		if loaded.Status != persistence.ConnectionActive {
			t.Fatalf("unexpected status: %s", loaded.Status)
		}
	})

	t.Run("reports missing connections", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		_, err := harness.Connections.GetConnection(context.Background(), "missing")
		if !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("rejects duplicate connection ids", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		fixture := seedConnection(t, harness)

		err := harness.Connections.CreateConnection(context.Background(), fixture.Connection)
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("updates the connection status", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		fixture := seedConnection(t, harness, testfixtures.WithStatus(persistence.ConnectionPending))

		loaded, err := harness.Connections.GetConnection(context.Background(), fixture.Connection.ID)
		if err != nil {
			t.Fatalf("GetConnection returned error: %v", err)
		}
		if loaded.Status != persistence.ConnectionPending {
			t.Fatalf("expected pending status, got %s", loaded.Status)
		}

		updatedAt := testfixtures.ReferenceTime().Add(time.Hour)
		if err := harness.Connections.UpdateConnectionStatus(context.Background(), fixture.Connection.ID, persistence.ConnectionRevoked, updatedAt); err != nil {
			t.Fatalf("UpdateConnectionStatus returned error: %v", err)
		}

		loaded, err = harness.Connections.GetConnection(context.Background(), fixture.Connection.ID)
		if err != nil {
			t.Fatalf("GetConnection returned error: %v", err)
		}
		if loaded.Status != persistence.ConnectionRevoked {
			t.Fatalf("expected revoked status, got %s", loaded.Status)
		}
	})

	t.Run("stores one grant per participant", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		fixture := seedConnection(t, harness,
			testfixtures.WithScopes("bob", "read-availability"),
			testfixtures.WithConstraints("bob", map[string]any{"minNoticeHours": float64(4)}),
		)

		alice, err := harness.Connections.GetPermission(context.Background(), fixture.Connection.ID, "alice")
		if err != nil {
			t.Fatalf("GetPermission returned error: %v", err)
		}
		if len(alice.Scopes) != len(testfixtures.AllScopes()) {
			t.Fatalf("unexpected scopes for alice: %v", alice.Scopes)
		}

		bob, err := harness.Connections.GetPermission(context.Background(), fixture.Connection.ID, "bob")
		if err != nil {
			t.Fatalf("GetPermission returned error: %v", err)
		}
		if len(bob.Scopes) != 1 || bob.Scopes[0] != "read-availability" {
			t.Fatalf("unexpected scopes for bob: %v", bob.Scopes)
		}
		if bob.Constraints["minNoticeHours"] != float64(4) {
			t.Fatalf("unexpected constraints for bob: %v", bob.Constraints)
		}
	})

	t.Run("put replaces an existing grant", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		fixture := seedConnection(t, harness)

		revoked := persistence.Permission{
			ConnectionID: fixture.Connection.ID,
			GrantorID:    "bob",
			Scopes:       []string{"read-availability"},
			Constraints:  map[string]any{},
			UpdatedAt:    testfixtures.ReferenceTime().Add(time.Hour),
		}
		if err := harness.Connections.PutPermission(context.Background(), revoked); err != nil {
			t.Fatalf("PutPermission returned error: %v", err)
		}

		loaded, err := harness.Connections.GetPermission(context.Background(), fixture.Connection.ID, "bob")
		if err != nil {
			t.Fatalf("GetPermission returned error: %v", err)
		}
		if len(loaded.Scopes) != 1 {
			t.Fatalf("expected the narrowed grant, got %v", loaded.Scopes)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	t.Parallel()

	t.Run("round trips sessions", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		fixture := seedConnection(t, harness)
		session := seedSession(t, harness, fixture, persistence.SessionPending)

		loaded, err := harness.Sessions.GetSession(context.Background(), session.ID)
		if err != nil {
			t.Fatalf("GetSession returned error: %v", err)
		}
		if loaded.ConnectionID != fixture.Connection.ID {
			t.Fatalf("unexpected connection id: %s", loaded.ConnectionID)
		}
		if loaded.Status != persistence.SessionPending {
			t.Fatalf("unexpected status: %s", loaded.Status)
		}
		if loaded.Outcome != nil || loaded.TTLExpiresAt != nil {
			t.Fatalf("expected empty optional fields: %+v", loaded)
		}
	})

	t.Run("persists the TTL deadline", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		fixture := seedConnection(t, harness)

		session := testfixtures.NewSessionFixture(fixture.Connection, persistence.SessionPending)
		deadline := testfixtures.ReferenceTime().Add(72 * time.Hour)
		session.TTLExpiresAt = &deadline
		if err := harness.Sessions.CreateSession(context.Background(), session); err != nil {
			t.Fatalf("CreateSession returned error: %v", err)
		}

		loaded, err := harness.Sessions.GetSession(context.Background(), session.ID)
		if err != nil {
			t.Fatalf("GetSession returned error: %v", err)
		}
		if loaded.TTLExpiresAt == nil || !loaded.TTLExpiresAt.Equal(deadline) {
			t.Fatalf("unexpected TTL deadline: %v", loaded.TTLExpiresAt)
		}
	})

	t.Run("rejects sessions on unknown connections", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		session := testfixtures.NewSessionFixture(persistence.Connection{ID: "ghost", InitiatorID: "alice", CounterpartID: "bob"}, persistence.SessionPending)

		err := harness.Sessions.CreateSession(context.Background(), session)
		if !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}
	})

	t.Run("updates the status", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		fixture := seedConnection(t, harness)
		session := seedSession(t, harness, fixture, persistence.SessionPending)

		updatedAt := testfixtures.ReferenceTime().Add(time.Hour)
		if err := harness.Sessions.UpdateSessionStatus(context.Background(), session.ID, persistence.SessionNegotiating, updatedAt); err != nil {
			t.Fatalf("UpdateSessionStatus returned error: %v", err)
		}

		loaded, err := harness.Sessions.GetSession(context.Background(), session.ID)
		if err != nil {
			t.Fatalf("GetSession returned error: %v", err)
		}
		if loaded.Status != persistence.SessionNegotiating {
			t.Fatalf("unexpected status: %s", loaded.Status)
		}
		if !loaded.UpdatedAt.Equal(updatedAt) {
			t.Fatalf("unexpected updated_at: %s", loaded.UpdatedAt)
		}

		if err := harness.Sessions.UpdateSessionStatus(context.Background(), "missing", persistence.SessionCancelled, updatedAt); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for missing session, got %v", err)
		}
	})

	t.Run("outcome write is first wins", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		fixture := seedConnection(t, harness)
		session := seedSession(t, harness, fixture, persistence.SessionNegotiating)

		start := testfixtures.ReferenceTime().Add(24 * time.Hour)
		first := persistence.Outcome{
			Start:              start,
			End:                start.Add(time.Hour),
			Timezone:           "UTC",
			InitiatorEventID:   "event-a",
			CounterpartEventID: "event-b",
			ConfirmedBy:        "alice",
			ConfirmedAt:        testfixtures.ReferenceTime(),
		}

		won, err := harness.Sessions.SetOutcomeIfAbsent(context.Background(), session.ID, first, testfixtures.ReferenceTime())
		if err != nil {
			t.Fatalf("SetOutcomeIfAbsent returned error: %v", err)
		}
		if !won {
			t.Fatalf("first write must win")
		}

		second := first
		second.ConfirmedBy = "bob"
		won, err = harness.Sessions.SetOutcomeIfAbsent(context.Background(), session.ID, second, testfixtures.ReferenceTime().Add(time.Second))
		if err != nil {
			t.Fatalf("second SetOutcomeIfAbsent returned error: %v", err)
		}
		if won {
			t.Fatalf("second write must lose")
		}

		loaded, err := harness.Sessions.GetSession(context.Background(), session.ID)
		if err != nil {
			t.Fatalf("GetSession returned error: %v", err)
		}
		if loaded.Status != persistence.SessionConfirmed {
			t.Fatalf("expected confirmed status, got %s", loaded.Status)
		}
		if loaded.Outcome == nil || loaded.Outcome.ConfirmedBy != "alice" {
			t.Fatalf("winning outcome was overwritten: %+v", loaded.Outcome)
		}
		if loaded.Outcome.InitiatorEventID != "event-a" || loaded.Outcome.CounterpartEventID != "event-b" {
			t.Fatalf("event ids were not preserved: %+v", loaded.Outcome)
		}
	})

	t.Run("outcome write on a missing session reports not found", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		_, err := harness.Sessions.SetOutcomeIfAbsent(context.Background(), "missing", persistence.Outcome{}, testfixtures.ReferenceTime())
		if !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("status update cannot overwrite a settled session", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		fixture := seedConnection(t, harness)
		session := seedSession(t, harness, fixture, persistence.SessionNegotiating)

		outcome := persistence.Outcome{
			ConfirmedBy:        "alice",
			InitiatorEventID:   "event-a",
			CounterpartEventID: "event-b",
		}
		won, err := harness.Sessions.SetOutcomeIfAbsent(context.Background(), session.ID, outcome, testfixtures.ReferenceTime())
		if err != nil || !won {
			t.Fatalf("SetOutcomeIfAbsent failed: won=%v err=%v", won, err)
		}

		err = harness.Sessions.UpdateSessionStatus(context.Background(), session.ID, persistence.SessionCancelled, testfixtures.ReferenceTime().Add(time.Second))
		if !errors.Is(err, persistence.ErrStaleState) {
			t.Fatalf("expected ErrStaleState, got %v", err)
		}

		loaded, err := harness.Sessions.GetSession(context.Background(), session.ID)
		if err != nil {
			t.Fatalf("GetSession returned error: %v", err)
		}
		if loaded.Status != persistence.SessionConfirmed {
			t.Fatalf("settled session was overwritten to %s", loaded.Status)
		}
		if loaded.Outcome == nil || loaded.Outcome.ConfirmedBy != "alice" {
			t.Fatalf("outcome lost after racing status update: %+v", loaded.Outcome)
		}
	})
}

func TestMessageRepository(t *testing.T) {
	t.Parallel()

	t.Run("lists messages in creation order", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		fixture := seedConnection(t, harness)
		session := seedSession(t, harness, fixture, persistence.SessionNegotiating)

		first := testfixtures.NewProposalMessageFixture(session.ID, "alice", 3)
		second := testfixtures.NewProposalMessageFixture(session.ID, "bob", 2)
		for _, message := range []persistence.Message{first, second} {
			if err := harness.Messages.CreateMessage(context.Background(), message); err != nil {
				t.Fatalf("CreateMessage returned error: %v", err)
			}
		}

		listed, err := harness.Messages.ListMessages(context.Background(), session.ID)
		if err != nil {
			t.Fatalf("ListMessages returned error: %v", err)
		}
		if len(listed) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(listed))
		}
		if listed[0].ID != first.ID || listed[1].ID != second.ID {
			t.Fatalf("messages out of order: %s, %s", listed[0].ID, listed[1].ID)
		}
		if len(listed[0].Proposals) != 3 {
			t.Fatalf("proposal windows were not round tripped: %+v", listed[0].Proposals)
		}
		if listed[0].Proposals[0].Timezone != "UTC" {
			t.Fatalf("unexpected proposal timezone: %s", listed[0].Proposals[0].Timezone)
		}
	})

	t.Run("latest proposal skips confirmation entries", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		fixture := seedConnection(t, harness)
		session := seedSession(t, harness, fixture, persistence.SessionNegotiating)

		first := testfixtures.NewProposalMessageFixture(session.ID, "alice", 3)
		second := testfixtures.NewProposalMessageFixture(session.ID, "bob", 1)
		note := persistence.Message{
			ID:        second.ID + "-note",
			SessionID: session.ID,
			SenderID:  "alice",
			Kind:      persistence.MessageNote,
			Body:      "works for me",
			CreatedAt: second.CreatedAt.Add(time.Second),
		}
		for _, message := range []persistence.Message{first, second, note} {
			if err := harness.Messages.CreateMessage(context.Background(), message); err != nil {
				t.Fatalf("CreateMessage returned error: %v", err)
			}
		}

		latest, err := harness.Messages.LatestProposalMessage(context.Background(), session.ID)
		if err != nil {
			t.Fatalf("LatestProposalMessage returned error: %v", err)
		}
		if latest.ID != second.ID {
			t.Fatalf("expected latest proposal %s, got %s", second.ID, latest.ID)
		}
	})

	t.Run("latest proposal reports empty sessions", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		fixture := seedConnection(t, harness)
		session := seedSession(t, harness, fixture, persistence.SessionPending)

		_, err := harness.Messages.LatestProposalMessage(context.Background(), session.ID)
		if !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestNotificationRepository(t *testing.T) {
	t.Parallel()

	seedNotification := func(t *testing.T, harness *testfixtures.SQLiteHarness) persistence.Notification {
		t.Helper()
		notification := persistence.Notification{
			ID:          "notification-1",
			RecipientID: "bob",
			Kind:        "schedule_proposal",
			Title:       "New meeting time proposals",
			Body:        "3 candidate times are waiting for your decision",
			SessionID:   "sess-1",
			MessageID:   "msg-1",
			CreatedAt:   testfixtures.ReferenceTime(),
			UpdatedAt:   testfixtures.ReferenceTime(),
		}
		if err := harness.Notifications.CreateNotification(context.Background(), notification); err != nil {
			t.Fatalf("CreateNotification returned error: %v", err)
		}
		return notification
	}

	t.Run("round trips notifications", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		notification := seedNotification(t, harness)

		loaded, err := harness.Notifications.GetNotification(context.Background(), notification.ID)
		if err != nil {
			t.Fatalf("GetNotification returned error: %v", err)
		}
		if loaded.RecipientID != "bob" || loaded.RequiresAction || loaded.Resolved {
			t.Fatalf("unexpected notification state: %+v", loaded)
		}
	})

	t.Run("marks actionability", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		notification := seedNotification(t, harness)

		updatedAt := testfixtures.ReferenceTime().Add(time.Minute)
		if err := harness.Notifications.MarkActionability(context.Background(), notification.ID, true, "sessions/sess-1/messages/msg-1", updatedAt); err != nil {
			t.Fatalf("MarkActionability returned error: %v", err)
		}

		loaded, err := harness.Notifications.GetNotification(context.Background(), notification.ID)
		if err != nil {
			t.Fatalf("GetNotification returned error: %v", err)
		}
		if !loaded.RequiresAction || loaded.ActionRef != "sessions/sess-1/messages/msg-1" {
			t.Fatalf("actionability was not stored: %+v", loaded)
		}
	})

	t.Run("resolves notifications", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		notification := seedNotification(t, harness)

		if err := harness.Notifications.ResolveNotification(context.Background(), notification.ID, testfixtures.ReferenceTime().Add(time.Minute)); err != nil {
			t.Fatalf("ResolveNotification returned error: %v", err)
		}

		loaded, err := harness.Notifications.GetNotification(context.Background(), notification.ID)
		if err != nil {
			t.Fatalf("GetNotification returned error: %v", err)
		}
		if !loaded.Resolved {
			t.Fatalf("notification was not resolved")
		}
	})
}

func TestIdempotencyRepository(t *testing.T) {
	t.Parallel()

	t.Run("first registration wins", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		claimed, err := harness.Idempotency.RegisterIfAbsent(context.Background(), "key-1", "propose_times", testfixtures.ReferenceTime())
		if err != nil {
			t.Fatalf("RegisterIfAbsent returned error: %v", err)
		}
		if !claimed {
			t.Fatalf("first registration must claim the key")
		}

		claimed, err = harness.Idempotency.RegisterIfAbsent(context.Background(), "key-1", "propose_times", testfixtures.ReferenceTime().Add(time.Second))
		if err != nil {
			t.Fatalf("repeated RegisterIfAbsent returned error: %v", err)
		}
		if claimed {
			t.Fatalf("repeated registration must report the key as taken")
		}
	})

	t.Run("operations scope the key space", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		if _, err := harness.Idempotency.RegisterIfAbsent(context.Background(), "key-1", "propose_times", testfixtures.ReferenceTime()); err != nil {
			t.Fatalf("RegisterIfAbsent returned error: %v", err)
		}

		claimed, err := harness.Idempotency.RegisterIfAbsent(context.Background(), "key-1", "confirm", testfixtures.ReferenceTime())
		if err != nil {
			t.Fatalf("RegisterIfAbsent returned error: %v", err)
		}
		if !claimed {
			t.Fatalf("the same key under another operation must be claimable")
		}
	})

	t.Run("rejects blank keys", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		if _, err := harness.Idempotency.RegisterIfAbsent(context.Background(), "  ", "confirm", testfixtures.ReferenceTime()); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
	})
}
