// Package balance picks one executor per relation group by weighted random
// draw.
//
// Relations sharing a group label are alternatives for the same edge. Each
// member gets a slice of [0, 1) proportional to its executor's proportion,
// and a single draw per Select decides which member of every group survives.
package balance

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/roach88/nature/internal/model"
)

// lastHigh is the upper bound given to the last member of a group so a draw
// at or rounding past 1.0 still lands on it.
const lastHigh float32 = 1.1

// Range is a half-open interval [Low, High).
type Range struct {
	Low  float32
	High float32
}

// Contains reports whether Low <= x < High.
func (r Range) Contains(x float32) bool {
	return r.Low <= x && x < r.High
}

// Group partitions rels by executor group label. Members keep their order
// in rels.
func Group(rels []model.Relation) map[string][]model.Relation {
	groups := make(map[string][]model.Relation)
	for _, r := range rels {
		groups[r.Executor.Group] = append(groups[r.Executor.Group], r)
	}
	return groups
}

// ComputeRanges assigns every member of every group a contiguous range
// proportional to its weight, in member order.
//
// A group whose proportions sum to zero gets no ranges, which makes Filter
// keep all of its members.
func ComputeRanges(groups map[string][]model.Relation) map[model.Executor]Range {
	ranges := make(map[model.Executor]Range)
	for _, members := range groups {
		var sum float32
		for _, m := range members {
			sum += m.Executor.Proportion
		}
		if sum <= 0 {
			continue
		}

		var low float32
		for i, m := range members {
			high := low + m.Executor.Proportion/sum
			if i == len(members)-1 {
				high = lastHigh
			}
			ranges[m.Executor] = Range{Low: low, High: high}
			low = high
		}
	}
	return ranges
}

// Filter keeps each relation whose executor has no range or whose range
// contains draw. Order is preserved.
func Filter(rels []model.Relation, ranges map[model.Executor]Range, draw float32) []model.Relation {
	out := make([]model.Relation, 0, len(rels))
	for _, r := range rels {
		rg, ok := ranges[r.Executor]
		if !ok || rg.Contains(draw) {
			out = append(out, r)
		}
	}
	return out
}

// Balancer applies ComputeRanges and Filter with its own random source.
//
// Thread-safety: Balancer is safe for concurrent use; draws are serialized
// by an internal mutex.
type Balancer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Balancer.
type Option func(*Balancer)

// WithSeed makes draws reproducible.
func WithSeed(seed uint64) Option {
	return func(b *Balancer) {
		b.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithSource sets the random source directly.
func WithSource(src rand.Source) Option {
	return func(b *Balancer) {
		b.rng = rand.New(src)
	}
}

// New creates a Balancer seeded from the wall clock unless an option says
// otherwise.
func New(opts ...Option) *Balancer {
	now := uint64(time.Now().UnixNano())
	b := &Balancer{rng: rand.New(rand.NewPCG(now, now>>1))}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Select returns the relations surviving one draw, in input order.
func (b *Balancer) Select(rels []model.Relation) []model.Relation {
	if len(rels) == 0 {
		return []model.Relation{}
	}
	return Filter(rels, ComputeRanges(Group(rels)), b.Draw())
}

// Draw returns the next uniform value in [0, 1).
func (b *Balancer) Draw() float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Float32()
}
