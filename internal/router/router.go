// Package router resolves the missions an instance triggers.
//
// Route validates the instance's meta, loads the relations leaving it,
// lets the balancer pick one executor per group, and hands the survivors
// to the mission resolver.
package router

import (
	"context"
	"log/slog"

	"github.com/roach88/nature/internal/balance"
	"github.com/roach88/nature/internal/meta"
	"github.com/roach88/nature/internal/mission"
	"github.com/roach88/nature/internal/model"
	"github.com/roach88/nature/internal/relation"
)

// Router wires the meta cache, relation cache, balancer and mission
// resolver to a pair of definition getters.
//
// Thread-safety: Router is safe for concurrent use.
type Router struct {
	metaGetter meta.Getter
	relGetter  relation.Getter
	metas      *meta.Cache
	relations  *relation.Cache
	balancer   *balance.Balancer
	resolver   *mission.Resolver
}

// Option configures a Router.
type Option func(*Router)

// WithMetaCache shares an existing meta cache.
func WithMetaCache(c *meta.Cache) Option {
	return func(r *Router) {
		r.metas = c
	}
}

// WithRelationCache shares an existing relation cache. It should resolve
// downstream metas through the same meta cache as the router.
func WithRelationCache(c *relation.Cache) Option {
	return func(r *Router) {
		r.relations = c
	}
}

// WithBalancer sets the balancer, e.g. a seeded one for reproducible runs.
func WithBalancer(b *balance.Balancer) Option {
	return func(r *Router) {
		r.balancer = b
	}
}

// WithResolver sets the mission resolver, e.g. one with a fixed clock.
func WithResolver(res *mission.Resolver) Option {
	return func(r *Router) {
		r.resolver = res
	}
}

// New creates a Router reading definitions through metaGetter and
// relGetter. Components not supplied by options get defaults.
func New(metaGetter meta.Getter, relGetter relation.Getter, opts ...Option) *Router {
	r := &Router{
		metaGetter: metaGetter,
		relGetter:  relGetter,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metas == nil {
		r.metas = meta.NewCache()
	}
	if r.relations == nil {
		r.relations = relation.NewCache(r.metas)
	}
	if r.balancer == nil {
		r.balancer = balance.New()
	}
	if r.resolver == nil {
		r.resolver = mission.NewResolver()
	}
	return r
}

// Meta resolves id through the meta cache.
func (r *Router) Meta(ctx context.Context, id string) (model.Meta, error) {
	return r.metas.Get(ctx, id, r.metaGetter)
}

// Relations returns every decoded relation leaving from, before balancing.
func (r *Router) Relations(ctx context.Context, from string) ([]model.Relation, error) {
	m, err := r.Meta(ctx, from)
	if err != nil {
		return nil, err
	}
	return r.relations.Get(ctx, m.String(), r.relGetter, r.metaGetter)
}

// Route returns the missions inst triggers, in relation order.
//
// Failures to resolve the instance's meta or to load its relations are
// returned. Individual relations that do not apply, or whose delay cannot
// be computed, only shrink the result.
func (r *Router) Route(ctx context.Context, inst model.Instance) ([]model.Mission, error) {
	rels, err := r.Relations(ctx, inst.Meta)
	if err != nil {
		return nil, err
	}

	selected := r.balancer.Select(rels)
	missions := r.resolver.Resolve(inst, selected)

	slog.Debug("instance routed",
		"instance", inst.ID,
		"meta", inst.Meta,
		"relations", len(rels),
		"selected", len(selected),
		"missions", len(missions))
	return missions, nil
}
