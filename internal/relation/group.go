package relation

import (
	"sync"

	"github.com/google/uuid"
)

// GroupIDGenerator produces labels for relation rows whose executors
// declare no group.
type GroupIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 group labels.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined group labels for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	labels []string
	idx    int
}

// NewFixedGenerator creates a generator that returns labels in order.
//
// Example:
//
//	gen := NewFixedGenerator("g-1", "g-2")
//	gen.Generate() // "g-1"
//	gen.Generate() // "g-2"
//	gen.Generate() // panic: all labels exhausted
func NewFixedGenerator(labels ...string) *FixedGenerator {
	return &FixedGenerator{labels: labels}
}

// Generate returns the next predetermined label.
//
// Panics if all labels have been consumed, which means a test decoded more
// ungrouped rows than it planned for.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.labels) {
		panic("FixedGenerator: all labels exhausted")
	}
	label := g.labels[g.idx]
	g.idx++
	return label
}
