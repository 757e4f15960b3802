package compiler

import (
	"encoding/json"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nature/internal/model"
)

func lookupRelation(t *testing.T, src, name string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v.LookupPath(cue.MakePath(cue.Str("relation"), cue.Str(name)))
}

func TestCompileRelationBasic(t *testing.T) {
	v := lookupRelation(t, `
		relation: "order-to-invoice": {
			from: "B:sale/order:01"
			to:   "B:finance/invoice:1"
			selector: { state_all: ["paid"] }
			executor: [
				{protocol: "http", url: "http://billing/a", group: "billing", proportion: 2},
				{protocol: "http", url: "http://billing/b", group: "billing"},
			]
			target: { states: { add: ["new"] } }
			delay: 30
		}
	`, "order-to-invoice")

	raw, err := CompileRelation(v)
	require.NoError(t, err)

	assert.Equal(t, "B:sale/order:1", raw.From, "from is canonicalised")
	assert.Equal(t, "B:finance/invoice:1", raw.To)
	assert.Equal(t, model.RelationActive, raw.Flag)

	var settings model.RelationSettings
	require.NoError(t, json.Unmarshal([]byte(raw.Settings), &settings))
	assert.Equal(t, []string{"paid"}, settings.Selector.StateAll)
	require.Len(t, settings.Executor, 2)
	assert.Equal(t, float32(2), settings.Executor[0].Proportion)
	assert.Equal(t, model.DefaultProportion, settings.Executor[1].Proportion)
	assert.Equal(t, []string{"new"}, settings.Target.States.Add)
	assert.Equal(t, 30, settings.Delay)
}

func TestCompileRelationSettingsExcludeRowFields(t *testing.T) {
	v := lookupRelation(t, `
		relation: r: {
			from: "B:a:1"
			to: "B:b:1"
			active: false
			executor: [{protocol: "local", url: "noop"}]
		}
	`, "r")

	raw, err := CompileRelation(v)
	require.NoError(t, err)
	assert.Equal(t, 0, raw.Flag)

	var settings map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw.Settings), &settings))
	assert.NotContains(t, settings, "from")
	assert.NotContains(t, settings, "to")
	assert.NotContains(t, settings, "active")
}

func TestCompileRelationMissingFields(t *testing.T) {
	testCases := []struct {
		name  string
		body  string
		field string
	}{
		{"from", `to: "B:b:1", executor: [{protocol: "local", url: "x"}]`, "relation.r.from"},
		{"to", `from: "B:a:1", executor: [{protocol: "local", url: "x"}]`, "relation.r.to"},
		{"executor", `from: "B:a:1", to: "B:b:1"`, "relation.r.executor"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := lookupRelation(t, `relation: r: {`+tc.body+`}`, "r")
			_, err := CompileRelation(v)
			require.Error(t, err)

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, tc.field, compileErr.Field)
			assert.Contains(t, compileErr.Message, "required")
		})
	}
}

func TestCompileRelationInvalidMetaID(t *testing.T) {
	v := lookupRelation(t, `relation: r: {from: "B:a", to: "B:b:1", executor: [{protocol: "local", url: "x"}]}`, "r")

	_, err := CompileRelation(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relation.r.from")
}

func TestCompileRelationUnknownTopLevelField(t *testing.T) {
	v := lookupRelation(t, `relation: r: {from: "B:a:1", to: "B:b:1", executors: [], executor: [{protocol: "local", url: "x"}]}`, "r")

	_, err := CompileRelation(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relation.r.executors")
}

func TestCompileRelationUnknownNestedField(t *testing.T) {
	v := lookupRelation(t, `
		relation: r: {
			from: "B:a:1"
			to: "B:b:1"
			selector: { states_all: ["paid"] }
			executor: [{protocol: "local", url: "x"}]
		}
	`, "r")

	_, err := CompileRelation(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "states_all")
}

func TestCompileRelationIncompleteValue(t *testing.T) {
	v := lookupRelation(t, `
		relation: r: {
			from: "B:a:1"
			to: "B:b:1"
			delay: int
			executor: [{protocol: "local", url: "x"}]
		}
	`, "r")

	_, err := CompileRelation(v)
	assert.Error(t, err)
}
