package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nature/internal/model"
)

func createTestInstance(id string, stateVersion int32) model.Instance {
	return model.Instance{
		ID:           id,
		Meta:         "B:order:1",
		Para:         "2024/1700000000",
		Content:      `{"amount":12}`,
		Context:      map[string]string{"tenant": "acme"},
		SysContext:   map[string]string{"loop": "1"},
		States:       []string{"new"},
		StateVersion: stateVersion,
		From:         &model.FromInstance{ID: "up-1", Meta: "B:cart:1"},
		CreateTime:   time.UnixMilli(1_700_000_000_000).UTC(),
	}
}

func TestWriteInstance_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	inst := createTestInstance("i-1", 1)
	inserted, err := s.WriteInstance(ctx, inst)
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := s.ReadInstance(ctx, inst.Meta, inst.ID, inst.Para)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, inst, *got)
}

func TestWriteInstance_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	inst := createTestInstance("i-1", 1)
	_, err := s.WriteInstance(ctx, inst)
	require.NoError(t, err)

	inst.Content = "changed"
	inserted, err := s.WriteInstance(ctx, inst)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := s.ReadInstance(ctx, inst.Meta, inst.ID, inst.Para)
	require.NoError(t, err)
	assert.Equal(t, `{"amount":12}`, got.Content)
}

func TestReadInstance_LatestStateVersion(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for _, v := range []int32{1, 3, 2} {
		inst := createTestInstance("i-1", v)
		_, err := s.WriteInstance(ctx, inst)
		require.NoError(t, err)
	}

	got, err := s.ReadInstance(ctx, "B:order:1", "i-1", "2024/1700000000")
	require.NoError(t, err)
	assert.Equal(t, int32(3), got.StateVersion)
}

func TestReadInstance_NotFoundIsNil(t *testing.T) {
	got, err := createTestStore(t).ReadInstance(context.Background(), "B:order:1", "nope", "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWriteInstance_RequiresKey(t *testing.T) {
	_, err := createTestStore(t).WriteInstance(context.Background(), model.Instance{ID: "i-1"})
	require.Error(t, err)
	assert.True(t, model.IsVerifyError(err))
}

func TestWriteInstance_MinimalFields(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.WriteInstance(ctx, model.Instance{ID: "i-2", Meta: "B:order:1"})
	require.NoError(t, err)

	got, err := s.ReadInstance(ctx, "B:order:1", "i-2", "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Context)
	assert.Nil(t, got.States)
	assert.Nil(t, got.From)
	assert.False(t, got.CreateTime.IsZero())
}
