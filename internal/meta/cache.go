package meta

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/nature/internal/metrics"
	"github.com/roach88/nature/internal/model"
)

// DefaultTTL is how long a resolved meta stays cached after insertion.
const DefaultTTL = time.Hour

// Cache is a TTL cache of resolved metas.
//
// Entries expire DefaultTTL after insertion; hits do not extend the TTL and
// there is no background eviction, expired entries are simply treated as
// absent on the next Get.
//
// Concurrent misses on one key share a single origin fetch. Master and
// sub-meta resolution re-enters Get from the calling goroutine after the
// shared fetch has finished, so no fetch is ever held open across a
// recursive lookup.
//
// Thread-safety: Cache is safe for concurrent use.
type Cache struct {
	items    *ttlcache.Cache[string, model.Meta]
	inflight singleflight.Group
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

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{ttl: DefaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	c.items = ttlcache.New(
		ttlcache.WithTTL[string, model.Meta](c.ttl),
		ttlcache.WithDisableTouchOnHit[string, model.Meta](),
	)
	return c
}

// fetched is the result of one shared origin fetch.
type fetched struct {
	meta   model.Meta
	cached bool // true if the fetch already stored meta
}

// Get returns the meta for id, consulting getter on a miss.
//
// A missing definition is acceptable only for null and dynamic metas; any
// other type yields a NOT_DEFINED error. For a multi meta every sub-meta is
// resolved and cached first; a sub-meta that fails is logged and skipped.
// For a meta with a master, the master is resolved first and its failure is
// returned. Errors are never cached.
//
// The returned Meta is a copy owned by the caller.
func (c *Cache) Get(ctx context.Context, id string, getter Getter) (model.Meta, error) {
	return c.get(ctx, id, getter, nil)
}

func (c *Cache) get(ctx context.Context, id string, getter Getter, path []string) (model.Meta, error) {
	parsed, err := Parse(id)
	if err != nil {
		return model.Meta{}, err
	}
	key := parsed.String()

	if slices.Contains(path, key) {
		return model.Meta{}, model.NewVerifyError("meta %s references itself: %s -> %s",
			key, strings.Join(path, " -> "), key)
	}

	if item := c.items.Get(key); item != nil {
		metrics.RecordCacheRequest(metrics.CacheMeta, metrics.ResultHit)
		return item.Value().Clone(), nil
	}
	metrics.RecordCacheRequest(metrics.CacheMeta, metrics.ResultMiss)

	v, err, _ := c.inflight.Do(key, func() (any, error) {
		return c.fetch(ctx, key, parsed, getter)
	})
	if err != nil {
		return model.Meta{}, err
	}
	f := v.(fetched)
	if f.cached {
		return f.meta.Clone(), nil
	}

	m := f.meta
	path = append(slices.Clone(path), key)

	if m.Type == model.MetaMulti {
		for _, sub := range m.SubMetas() {
			if _, err := c.get(ctx, sub, getter, path); err != nil {
				slog.Warn("sub-meta skipped", "meta", key, "sub", sub, "error", err)
			}
		}
	}

	if master := m.Master(); master != "" {
		if _, err := c.get(ctx, master, getter, path); err != nil {
			return model.Meta{}, fmt.Errorf("resolve master %s of %s: %w", master, key, err)
		}
	}

	c.items.Set(key, m, ttlcache.DefaultTTL)
	return m.Clone(), nil
}

// fetch loads and decodes key from the origin. Metas without master or
// sub-meta references are stored before the shared call returns.
func (c *Cache) fetch(ctx context.Context, key string, parsed model.Meta, getter Getter) (fetched, error) {
	if item := c.items.Get(key); item != nil {
		return fetched{meta: item.Value(), cached: true}, nil
	}

	raw, err := getter.GetMeta(ctx, key)
	if err != nil {
		metrics.RecordOriginError(metrics.CacheMeta)
		return fetched{}, err
	}

	var m model.Meta
	if raw == nil {
		if !parsed.Type.MayBeUndefined() {
			return fetched{}, model.NewNotDefinedError(key)
		}
		m = parsed
	} else {
		m, err = FromRaw(raw)
		if err != nil {
			return fetched{}, err
		}
		if m.String() != key {
			return fetched{}, model.NewSystemError("meta origin returned %s for %s", m, key)
		}
	}

	if m.Type == model.MetaMulti || m.Master() != "" {
		return fetched{meta: m}, nil
	}
	c.items.Set(key, m, ttlcache.DefaultTTL)
	return fetched{meta: m, cached: true}, nil
}

// Len returns the number of entries, including expired ones not yet
// evicted.
func (c *Cache) Len() int {
	return c.items.Len()
}

// Invalidate drops id from the cache so the next Get refetches it.
func (c *Cache) Invalidate(id string) {
	parsed, err := Parse(id)
	if err != nil {
		return
	}
	c.items.Delete(parsed.String())
}
