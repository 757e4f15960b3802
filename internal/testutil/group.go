package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator generates group labels "<prefix>-1", "<prefix>-2", ...
//
// Unlike relation.FixedGenerator it never runs out, which suits scenario
// runs where the number of ungrouped relation rows is not known up front.
// The same scenario decoded with a fresh generator always yields the same
// labels, so golden outputs stay stable.
//
// Thread-safety: SequenceGenerator is safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix becomes "group".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "group"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next label.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
