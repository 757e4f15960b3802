package relation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nature/internal/meta"
	"github.com/roach88/nature/internal/model"
)

// rowGetter serves relation rows per upstream and counts calls.
type rowGetter struct {
	mu    sync.Mutex
	rows  map[string][]model.RawRelation
	calls int
	err   error
}

func (g *rowGetter) GetRelations(_ context.Context, from string) ([]model.RawRelation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.rows[from], nil
}

func active(from, to, settings string) model.RawRelation {
	return model.RawRelation{From: from, To: to, Settings: settings, Flag: model.RelationActive}
}

func newTestCache(labels ...string) *Cache {
	return NewCache(meta.NewCache(), WithGroupIDGenerator(NewFixedGenerator(labels...)))
}

func TestCache_EmptyResultIsCached(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache()
	getter := &rowGetter{}

	first, err := cache.Get(ctx, "B:order:1", getter, testMetas())
	require.NoError(t, err)
	second, err := cache.Get(ctx, "B:order:1", getter, testMetas())
	require.NoError(t, err)

	assert.NotNil(t, first)
	assert.Empty(t, first)
	assert.Empty(t, second)
	assert.Equal(t, 1, getter.calls)
}

func TestCache_HitReturnsClone(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache("g-1")
	getter := &rowGetter{rows: map[string][]model.RawRelation{
		"B:order:1": {active("B:order:1", "B:ship:1", `{"executor": [{"protocol": "http", "url": "http://ship"}]}`)},
	}}

	rels, err := cache.Get(ctx, "B:order:1", getter, testMetas())
	require.NoError(t, err)
	require.Len(t, rels, 1)
	rels[0].Executor.URL = "mutated"

	again, err := cache.Get(ctx, "B:order:1", getter, testMetas())
	require.NoError(t, err)
	assert.Equal(t, "http://ship", again[0].Executor.URL)
	assert.Equal(t, "g-1", again[0].Executor.Group)
	assert.Equal(t, 1, getter.calls)
}

func TestCache_SkipsInvalidRowsKeepsSiblings(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache("g-1", "g-2")
	getter := &rowGetter{rows: map[string][]model.RawRelation{
		"B:order:1": {
			active("B:order:1", "B:ship:1", `{"executor": [{"protocol": "http", "url": "a", "group": "x"}, {"protocol": "http", "url": "b", "group": "y"}]}`),
			active("B:order:1", "B:nowhere:1", `{"executor": [{"protocol": "http", "url": "c"}]}`),
			active("B:order:1", "B:invoice:1", `{"executor": [{"protocol": "http", "url": "d"}]}`),
			{From: "B:order:1", To: "B:ship:1", Settings: `{"executor": [{"protocol": "http", "url": "e"}]}`, Flag: 0},
		},
	}}

	rels, err := cache.Get(ctx, "B:order:1", getter, testMetas())
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "B:invoice:1", rels[0].To.String())
	assert.Equal(t, "d", rels[0].Executor.URL)
}

func TestCache_OriginErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache("g-1")
	getter := &rowGetter{err: model.NewEnvironmentError("query relation", errors.New("database is locked"))}

	_, err := cache.Get(ctx, "B:order:1", getter, testMetas())
	require.Error(t, err)
	assert.True(t, model.IsEnvironmentError(err))
	assert.Equal(t, 0, cache.Len())

	getter.err = nil
	rels, err := cache.Get(ctx, "B:order:1", getter, testMetas())
	require.NoError(t, err)
	assert.Empty(t, rels)
	assert.Equal(t, 2, getter.calls)
}

func TestCache_MetaEnvironmentErrorAbortsLoad(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache("g-1")
	getter := &rowGetter{rows: map[string][]model.RawRelation{
		"B:order:1": {active("B:order:1", "B:ship:1", `{"executor": [{"protocol": "http", "url": "a"}]}`)},
	}}
	failing := meta.GetterFunc(func(context.Context, string) (*model.RawMeta, error) {
		return nil, model.NewSystemError("meta query returned 2 rows")
	})

	_, err := cache.Get(ctx, "B:order:1", getter, failing)
	require.Error(t, err)
	assert.True(t, model.IsSystemError(err))
	assert.Equal(t, 0, cache.Len())
}

func TestCache_InvalidUpstream(t *testing.T) {
	_, err := newTestCache().Get(context.Background(), "order", &rowGetter{}, testMetas())
	require.Error(t, err)
	assert.True(t, model.IsVerifyError(err))
}

func TestCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache()
	getter := &rowGetter{}

	_, err := cache.Get(ctx, "B:order:1", getter, testMetas())
	require.NoError(t, err)
	cache.Invalidate("B:order:1")
	_, err = cache.Get(ctx, "B:order:1", getter, testMetas())
	require.NoError(t, err)

	assert.Equal(t, 2, getter.calls)
}
