package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/meeting-negotiator/internal/timeslot"
)

// StubProvider is an in-memory Provider used for local runs and tests. Busy
// intervals are seeded per user; created events are retained so tests can
// assert on creations and compensating deletes.
type StubProvider struct {
	mu          sync.Mutex
	busy        map[string][]timeslot.Interval
	events      map[string]EventInput
	idGenerator func() string
	counter     int
}

// NewStubProvider returns an empty stub provider. When idGenerator is nil a
// sequential identifier is used.
func NewStubProvider(idGenerator func() string) *StubProvider {
	return &StubProvider{
		busy:        make(map[string][]timeslot.Interval),
		events:      make(map[string]EventInput),
		idGenerator: idGenerator,
	}
}

// SeedBusy registers busy intervals for a user.
func (p *StubProvider) SeedBusy(userID string, intervals ...timeslot.Interval) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.busy[userID] = append(p.busy[userID], intervals...)
}

// BusyIntervals returns the seeded busy intervals clipped to [from, to).
func (p *StubProvider) BusyIntervals(ctx context.Context, userID string, from, to time.Time) ([]timeslot.Interval, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	horizon := timeslot.Interval{Start: from, End: to}
	intervals := make([]timeslot.Interval, 0, len(p.busy[userID]))
	for _, interval := range p.busy[userID] {
		if interval.Overlaps(horizon) {
			intervals = append(intervals, interval)
		}
	}
	return intervals, nil
}

// CreateEvent records the event and marks the covered span busy.
func (p *StubProvider) CreateEvent(ctx context.Context, userID string, input EventInput) (Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var id string
	if p.idGenerator != nil {
		id = p.idGenerator()
	} else {
		p.counter++
		id = fmt.Sprintf("event-%s-%d", userID, p.counter)
	}

	p.events[id] = input
	p.busy[userID] = append(p.busy[userID], timeslot.Interval{Start: input.Start, End: input.End})
	return Event{ID: id}, nil
}

// DeleteEvent removes a previously created event.
func (p *StubProvider) DeleteEvent(ctx context.Context, userID string, eventID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.events[eventID]; !ok {
		return NewProviderError(KindPermanent, "DeleteEvent", userID, fmt.Errorf("event %s not found", eventID))
	}
	delete(p.events, eventID)
	return nil
}

// EventCount returns the number of events currently held by the stub.
func (p *StubProvider) EventCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
