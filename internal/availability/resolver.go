// Package availability computes mutually free candidate slots for two
// participants from their external calendars, filtered by both parties'
// constraints.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/example/meeting-negotiator/internal/calendar"
	"github.com/example/meeting-negotiator/internal/timeslot"
)

const (
	// DefaultHorizon bounds the search when the caller supplies no latest time.
	DefaultHorizon = 14 * 24 * time.Hour
	// DefaultStep is the slide interval for candidate generation. It is
	// clamped down to the requested duration so shorter meetings never skip
	// valid slots.
	DefaultStep = 30 * time.Minute
	// DefaultLimit caps the number of returned candidates when the caller
	// supplies none.
	DefaultLimit = 5
)

// MutualProposalParams carries one proposal-generation request.
type MutualProposalParams struct {
	UserA           string
	UserB           string
	DurationMinutes int
	Earliest        *time.Time
	Latest          *time.Time
	Timezone        string
	ConstraintsA    timeslot.Constraints
	ConstraintsB    timeslot.Constraints
	Limit           int
}

// Resolver generates mutual proposals against a calendar provider. The
// current time is injected so candidate generation stays deterministic in
// tests.
type Resolver struct {
	provider calendar.Provider
	now      func() time.Time
	horizon  time.Duration
	step     time.Duration
	limit    int
}

// NewResolver wires a resolver. Zero horizon, step, and limit fall back to
// defaults; a nil now falls back to time.Now.
func NewResolver(provider calendar.Provider, now func() time.Time, horizon, step time.Duration, limit int) *Resolver {
	if now == nil {
		now = time.Now
	}
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if step <= 0 {
		step = DefaultStep
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Resolver{provider: provider, now: now, horizon: horizon, step: step, limit: limit}
}

// GenerateMutualProposals computes ranked candidate windows both users are
// free for and both parties' constraints accept. An empty result is a normal
// outcome; a fetch failure for either calendar fails the whole call.
func (r *Resolver) GenerateMutualProposals(ctx context.Context, params MutualProposalParams) ([]timeslot.Window, error) {
	if r == nil || r.provider == nil {
		return nil, fmt.Errorf("availability: resolver not configured")
	}
	if params.UserA == "" || params.UserB == "" {
		return nil, fmt.Errorf("availability: both user ids are required")
	}
	if params.DurationMinutes <= 0 {
		return nil, fmt.Errorf("availability: duration must be positive")
	}
	if params.Limit < 0 {
		return nil, fmt.Errorf("availability: limit must be positive")
	}

	now := r.now()
	from := now
	if params.Earliest != nil && params.Earliest.After(now) {
		from = *params.Earliest
	}
	to := from.Add(r.horizon)
	if params.Latest != nil {
		to = *params.Latest
	}
	if !to.After(from) {
		return nil, fmt.Errorf("availability: latest must be after earliest")
	}

	limit := params.Limit
	if limit == 0 {
		limit = r.limit
	}

	busyA, err := r.provider.BusyIntervals(ctx, params.UserA, from, to)
	if err != nil {
		return nil, fmt.Errorf("availability: fetching busy intervals for %s: %w", params.UserA, err)
	}
	busyB, err := r.provider.BusyIntervals(ctx, params.UserB, from, to)
	if err != nil {
		return nil, fmt.Errorf("availability: fetching busy intervals for %s: %w", params.UserB, err)
	}

	horizon := timeslot.Interval{Start: from, End: to}
	freeA := timeslot.Complement(busyA, horizon)
	freeB := timeslot.Complement(busyB, horizon)
	mutual := timeslot.Intersect(freeA, freeB)

	duration := time.Duration(params.DurationMinutes) * time.Minute
	step := r.step
	if step > duration {
		step = duration
	}

	loc := time.UTC
	if params.Timezone != "" {
		parsed, err := time.LoadLocation(params.Timezone)
		if err != nil {
			return nil, fmt.Errorf("availability: unknown timezone %q", params.Timezone)
		}
		loc = parsed
	}

	candidates := make([]timeslot.Window, 0, limit)
	for _, interval := range mutual {
		for start := interval.Start; !start.Add(duration).After(interval.End); start = start.Add(step) {
			window := timeslot.Window{
				Start:    start,
				End:      start.Add(duration),
				Timezone: params.Timezone,
			}
			if !params.ConstraintsA.Permits(window, now, loc) {
				continue
			}
			if !params.ConstraintsB.Permits(window, now, loc) {
				continue
			}
			candidates = append(candidates, window)
			if len(candidates) >= limit {
				return candidates, nil
			}
		}
	}

	return candidates, nil
}
