// Package mission turns the relations of an upstream instance into the
// missions to run for it.
package mission

import (
	"log/slog"
	"strconv"

	"github.com/roach88/nature/internal/metrics"
	"github.com/roach88/nature/internal/model"
	"github.com/roach88/nature/internal/selector"
)

// Resolver builds missions from already balanced relations.
type Resolver struct {
	clock Clock
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock sets the clock used for parameter-relative delays.
// Default: SystemClock.
func WithClock(c Clock) Option {
	return func(r *Resolver) {
		r.clock = c
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{clock: SystemClock{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns one mission per relation whose selector matches inst, in
// relation order.
//
// A relation whose delay cannot be computed is logged and skipped; the rest
// are still resolved. The result is never nil.
func (r *Resolver) Resolve(inst model.Instance, rels []model.Relation) []model.Mission {
	missions := make([]model.Mission, 0, len(rels))
	for _, rel := range rels {
		if !selector.MatchInstance(rel.Selector, inst) {
			metrics.RecordMission(metrics.OutcomeFiltered)
			continue
		}

		delay, err := r.Delay(inst, rel)
		if err != nil {
			metrics.RecordMission(metrics.OutcomeDelayFailed)
			slog.Warn("relation skipped",
				"instance", inst.ID,
				"from", rel.From,
				"to", rel.To.String(),
				"error", err)
			continue
		}

		metrics.RecordMission(metrics.OutcomeResolved)
		missions = append(missions, model.Mission{
			To:            rel.To.Clone(),
			Executor:      rel.Executor,
			ConvertBefore: rel.ConvertBefore,
			ConvertAfter:  rel.ConvertAfter,
			UseUpstreamID: rel.UseUpstreamID,
			Target:        rel.Target.Clone(),
			Delay:         delay,
		})
	}
	return missions
}

// Delay computes the mission delay in seconds.
//
// A positive fixed delay wins. Otherwise, with DelayOnPara set, the para
// part at Part is read as Unix seconds and the delay is that time minus now
// plus Offset, never below zero. Without either the delay is zero.
func (r *Resolver) Delay(inst model.Instance, rel model.Relation) (int, error) {
	if rel.Delay > 0 {
		return rel.Delay, nil
	}
	d := rel.DelayOnPara
	if d == nil {
		return 0, nil
	}

	part, ok := inst.ParaPart(d.Part)
	if !ok {
		return 0, model.NewVerifyError("para %q has no part %d", inst.Para, d.Part)
	}
	ts, err := strconv.ParseInt(part, 10, 64)
	if err != nil {
		return 0, model.NewVerifyError("para part %d %q is not a unix timestamp", d.Part, part)
	}

	delay := ts - r.clock.Now().Unix() + int64(d.Offset)
	if delay < 0 {
		return 0, nil
	}
	return int(delay), nil
}
