package relation

import (
	"context"
	"log/slog"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/nature/internal/meta"
	"github.com/roach88/nature/internal/metrics"
	"github.com/roach88/nature/internal/model"
)

// DefaultTTL is how long a decoded relation list stays cached.
const DefaultTTL = time.Hour

// Cache maps an upstream meta identifier to its decoded relations.
//
// An upstream with no relations is cached as an empty list. Errors are never
// cached, so a failing origin is retried on the next Get.
//
// Thread-safety: Cache is safe for concurrent use.
type Cache struct {
	items    *ttlcache.Cache[string, []model.Relation]
	inflight singleflight.Group
	metas    *meta.Cache
	groups   GroupIDGenerator
	ttl      time.Duration
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets the entry lifetime. Non-positive values keep the default.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithGroupIDGenerator sets the generator for rows without a group label.
// Default: UUIDv7Generator.
func WithGroupIDGenerator(gen GroupIDGenerator) CacheOption {
	return func(c *Cache) {
		c.groups = gen
	}
}

// NewCache creates an empty relation cache that resolves downstream metas
// through metas.
func NewCache(metas *meta.Cache, opts ...CacheOption) *Cache {
	c := &Cache{
		metas:  metas,
		groups: UUIDv7Generator{},
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.items = ttlcache.New(
		ttlcache.WithTTL[string, []model.Relation](c.ttl),
		ttlcache.WithDisableTouchOnHit[string, []model.Relation](),
	)
	return c
}

// Get returns the relations whose upstream is from.
//
// On a miss the rows come from relGetter and are decoded in order. Inactive
// rows are ignored. A row that fails with a VERIFY or NOT_DEFINED error is
// logged and skipped; any other error aborts the load and is returned.
//
// The returned slice and its relations are copies owned by the caller.
func (c *Cache) Get(ctx context.Context, from string, relGetter Getter, metaGetter meta.Getter) ([]model.Relation, error) {
	parsed, err := meta.Parse(from)
	if err != nil {
		return nil, err
	}
	key := parsed.String()

	if item := c.items.Get(key); item != nil {
		metrics.RecordCacheRequest(metrics.CacheRelation, metrics.ResultHit)
		return model.CloneRelations(item.Value()), nil
	}
	metrics.RecordCacheRequest(metrics.CacheRelation, metrics.ResultMiss)

	v, err, _ := c.inflight.Do(key, func() (any, error) {
		return c.load(ctx, key, relGetter, metaGetter)
	})
	if err != nil {
		return nil, err
	}
	return model.CloneRelations(v.([]model.Relation)), nil
}

func (c *Cache) load(ctx context.Context, key string, relGetter Getter, metaGetter meta.Getter) ([]model.Relation, error) {
	if item := c.items.Get(key); item != nil {
		return item.Value(), nil
	}

	rows, err := relGetter.GetRelations(ctx, key)
	if err != nil {
		metrics.RecordOriginError(metrics.CacheRelation)
		return nil, err
	}

	rels := make([]model.Relation, 0, len(rows))
	for _, row := range rows {
		if row.Flag != model.RelationActive {
			slog.Debug("inactive relation ignored", "from", row.From, "to", row.To)
			continue
		}
		decoded, err := Decode(ctx, row, c.metas, metaGetter, c.groups)
		if err != nil {
			if !model.IsSkippable(err) {
				return nil, err
			}
			metrics.RecordRelationSkipped(string(model.KindOf(err)))
			slog.Warn("relation skipped", "from", row.From, "to", row.To, "error", err)
			continue
		}
		rels = append(rels, decoded...)
	}

	c.items.Set(key, rels, ttlcache.DefaultTTL)
	return rels, nil
}

// Len returns the number of cached upstreams, including expired entries not
// yet evicted.
func (c *Cache) Len() int {
	return c.items.Len()
}

// Invalidate drops from so the next Get reloads it.
func (c *Cache) Invalidate(from string) {
	parsed, err := meta.Parse(from)
	if err != nil {
		return
	}
	c.items.Delete(parsed.String())
}
