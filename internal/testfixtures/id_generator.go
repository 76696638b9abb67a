package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator hands out sequential prefixed identifiers so sessions,
// messages, and notifications created during a test are predictable.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
}

// NewIDGenerator constructs a generator yielding "<prefix>-1", "<prefix>-2",
// and so on. An empty prefix falls back to "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}
