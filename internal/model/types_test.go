package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeta_StringIsCanonical(t *testing.T) {
	m := Meta{Type: MetaBusiness, Key: "sale/order", Version: 1}
	assert.Equal(t, "B:sale/order:1", m.String())

	null := Meta{Type: MetaNull, Version: 1}
	assert.Equal(t, "N::1", null.String())
}

func TestMeta_CloneIsDeep(t *testing.T) {
	m := Meta{
		Type:    MetaMulti,
		Key:     "fan",
		Version: 1,
		States:  []string{"a"},
		Setting: &MetaSetting{MultiMeta: []string{"B:x:1"}},
	}

	c := m.Clone()
	c.States[0] = "changed"
	c.Setting.MultiMeta[0] = "changed"

	assert.Equal(t, "a", m.States[0])
	assert.Equal(t, "B:x:1", m.Setting.MultiMeta[0])
}

func TestMeta_IsStateful(t *testing.T) {
	assert.False(t, Meta{}.IsStateful())
	assert.True(t, Meta{States: []string{"new"}}.IsStateful())
	assert.True(t, Meta{Setting: &MetaSetting{IsState: true}}.IsStateful())
}

func TestExecutor_DefaultProportion(t *testing.T) {
	var execs []Executor
	err := json.Unmarshal([]byte(`[
		{"protocol": "http", "url": "http://a"},
		{"protocol": "http", "url": "http://b", "proportion": 0},
		{"protocol": "http", "url": "http://c", "proportion": 2.5, "group": "g"}
	]`), &execs)
	require.NoError(t, err)

	assert.Equal(t, DefaultProportion, execs[0].Proportion)
	assert.Equal(t, float32(0), execs[1].Proportion)
	assert.Equal(t, float32(2.5), execs[2].Proportion)
	assert.Equal(t, "g", execs[2].Group)
	assert.Equal(t, ProtocolHTTP, execs[2].Protocol)
}

func TestFlowSelector_IsEmpty(t *testing.T) {
	var nilSel *FlowSelector
	assert.True(t, nilSel.IsEmpty())
	assert.True(t, (&FlowSelector{}).IsEmpty())
	assert.False(t, (&FlowSelector{SysContextAny: []string{"x"}}).IsEmpty())
}

func TestRelation_CloneIsDeep(t *testing.T) {
	r := Relation{
		From:     "B:a:1",
		To:       Meta{Type: MetaBusiness, Key: "b", Version: 1, States: []string{"s"}},
		Selector: &FlowSelector{StateAll: []string{"s"}},
		Target:   &TargetDemand{States: &TargetStates{Add: []string{"s"}}},
		DelayOnPara: &DelayOnPara{
			Offset: 1,
		},
	}

	c := r.Clone()
	c.Selector.StateAll[0] = "x"
	c.Target.States.Add[0] = "x"
	c.DelayOnPara.Offset = 9
	c.To.States[0] = "x"

	assert.Equal(t, "s", r.Selector.StateAll[0])
	assert.Equal(t, "s", r.Target.States.Add[0])
	assert.Equal(t, 1, r.DelayOnPara.Offset)
	assert.Equal(t, "s", r.To.States[0])
}

func TestCloneRelations_NilYieldsEmpty(t *testing.T) {
	out := CloneRelations(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestInstance_ParaPart(t *testing.T) {
	inst := Instance{Para: "2024/1700000000/x"}

	part, ok := inst.ParaPart(1)
	assert.True(t, ok)
	assert.Equal(t, "1700000000", part)

	_, ok = inst.ParaPart(3)
	assert.False(t, ok)

	_, ok = Instance{}.ParaPart(0)
	assert.False(t, ok)
}
