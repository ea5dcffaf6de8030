package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator hands out meeting ids "<prefix>-1", "<prefix>-2", ... in call
// order.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	issued uint64
}

// NewIDGenerator uses "meeting" when prefix is empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "meeting"
	}
	return &IDGenerator{prefix: prefix}
}

// Next issues the next id.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issued++
	return fmt.Sprintf("%s-%d", g.prefix, g.issued)
}

// NextFunc returns Next for injection into MeetingService.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}
