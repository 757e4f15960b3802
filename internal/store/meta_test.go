package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nature/internal/model"
)

func TestGetMeta_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	raw := createTestMeta("sale/order", 1, "new,paid")
	raw.Description = "an order"
	raw.Config = `{"is_state":true}`
	raw.CreateTime = time.UnixMilli(1_700_000_000_123).UTC()
	require.NoError(t, s.WriteMeta(ctx, raw))

	got, err := s.GetMeta(ctx, "B:sale/order:1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, raw, *got)
}

func TestGetMeta_NotFoundIsNil(t *testing.T) {
	s := createTestStore(t)

	got, err := s.GetMeta(context.Background(), "B:nothing:1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetMeta_InvalidID(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetMeta(context.Background(), "order")
	require.Error(t, err)
	assert.True(t, model.IsVerifyError(err))
}

func TestWriteMeta_Upserts(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.WriteMeta(ctx, createTestMeta("order", 1, "new")))
	require.NoError(t, s.WriteMeta(ctx, createTestMeta("order", 1, "new,paid")))

	got, err := s.GetMeta(ctx, "B:order:1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new,paid", got.States)

	all, err := s.ListMetas(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestWriteMeta_DefaultsCreateTime(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.WriteMeta(ctx, createTestMeta("order", 1, "")))

	got, err := s.GetMeta(ctx, "B:order:1")
	require.NoError(t, err)
	assert.False(t, got.CreateTime.IsZero())
}

func TestListMetas_Ordered(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.WriteMeta(ctx, createTestMeta("b", 2, "")))
	require.NoError(t, s.WriteMeta(ctx, createTestMeta("b", 1, "")))
	require.NoError(t, s.WriteMeta(ctx, createTestMeta("a", 1, "")))

	all, err := s.ListMetas(ctx)
	require.NoError(t, err)

	ids := make([]string, len(all))
	for i, m := range all {
		ids[i] = m.MetaString()
	}
	assert.Equal(t, []string{"B:a:1", "B:b:1", "B:b:2"}, ids)
}

func TestListMetas_EmptyNotNil(t *testing.T) {
	all, err := createTestStore(t).ListMetas(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestDeleteMeta_RefusesActiveTarget(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.WriteMeta(ctx, createTestMeta("order", 1, "")))
	require.NoError(t, s.WriteMeta(ctx, createTestMeta("ship", 1, "")))
	require.NoError(t, s.WriteRelation(ctx, createTestRelation("B:order:1", "B:ship:1")))

	err := s.DeleteMeta(ctx, "B:ship:1")
	require.Error(t, err)
	assert.True(t, model.IsVerifyError(err))

	require.NoError(t, s.DeleteRelation(ctx, "B:order:1", "B:ship:1"))
	require.NoError(t, s.DeleteMeta(ctx, "B:ship:1"))

	got, err := s.GetMeta(ctx, "B:ship:1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetMeta_ClosedStoreIsEnvironmentError(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.GetMeta(context.Background(), "B:order:1")
	require.Error(t, err)
	assert.True(t, model.IsEnvironmentError(err))
}
