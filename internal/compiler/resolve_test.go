package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nature/internal/model"
)

func rawMeta(key, states string) model.RawMeta {
	return model.RawMeta{MetaType: "B", MetaKey: key, Version: 1, States: states, Flag: 1}
}

// TestCheckReferences_AllResolve tests that relations between defined metas pass.
func TestCheckReferences_AllResolve(t *testing.T) {
	metas := []model.RawMeta{rawMeta("order", ""), rawMeta("invoice", "")}
	rels := []model.RawRelation{rel("B:order:1", "B:invoice:1")}

	errs := CheckReferences(context.Background(), metas, rels)
	assert.NotNil(t, errs)
	assert.Empty(t, errs)
}

// TestCheckReferences_UndefinedTarget tests that a missing downstream meta is reported.
func TestCheckReferences_UndefinedTarget(t *testing.T) {
	metas := []model.RawMeta{rawMeta("order", "")}
	rels := []model.RawRelation{rel("B:order:1", "B:invoice:1")}

	errs := CheckReferences(context.Background(), metas, rels)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrRelationUnresolved, errs[0].Code)
	assert.Equal(t, "relation.to", errs[0].Field)
	assert.Contains(t, errs[0].Message, "B:invoice:1")
}

// TestCheckReferences_UndefinedUpstream tests that a missing upstream meta is reported.
func TestCheckReferences_UndefinedUpstream(t *testing.T) {
	metas := []model.RawMeta{rawMeta("invoice", "")}
	rels := []model.RawRelation{rel("B:order:1", "B:invoice:1")}

	errs := CheckReferences(context.Background(), metas, rels)
	require.Len(t, errs, 1)
	assert.Equal(t, "relation.from", errs[0].Field)
}

// TestCheckReferences_UndeclaredTargetState tests that target states must exist downstream.
func TestCheckReferences_UndeclaredTargetState(t *testing.T) {
	metas := []model.RawMeta{rawMeta("order", ""), rawMeta("invoice", "open,closed")}
	r := rel("B:order:1", "B:invoice:1")
	r.Settings = `{"executor":[{"protocol":"local","url":"x"}],"target":{"states":{"add":["void"]}}}`

	errs := CheckReferences(context.Background(), metas, []model.RawRelation{r})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrRelationUnresolved, errs[0].Code)
}

// TestCheckReferences_InactiveSkipped tests that inactive relations are not decoded.
func TestCheckReferences_InactiveSkipped(t *testing.T) {
	r := rel("B:order:1", "B:invoice:1")
	r.Flag = 0

	assert.Empty(t, CheckReferences(context.Background(), nil, []model.RawRelation{r}))
}
