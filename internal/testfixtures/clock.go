package testfixtures

import (
	"sync"
	"time"
)

// Clock is a deterministic time source. The services take their clock as a
// func() time.Time, so tests pass clock.Now and control every timestamp a
// negotiation writes.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock frozen at start. A zero start freezes it at the
// shared ReferenceTime.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now returns the clock's current instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}
