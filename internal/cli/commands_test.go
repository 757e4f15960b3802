package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nature/internal/compiler"
	"github.com/roach88/nature/internal/model"
	"github.com/roach88/nature/internal/store"
)

func TestLoadCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "nature.db")

	out, _, err := execute(t, "--db", db, "load", orderSpecsDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Loaded 4 meta(s), 3 relation(s)")

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	metas, err := st.ListMetas(context.Background())
	require.NoError(t, err)
	assert.Len(t, metas, 4)

	rels, err := st.GetRelations(context.Background(), "B:sale/order:1")
	require.NoError(t, err)
	assert.Len(t, rels, 3)
}

func TestLoadCommandIsIdempotent(t *testing.T) {
	db := loadedDB(t)

	out, _, err := execute(t, "--db", db, "--format", "json", "load", orderSpecsDir)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   LoadSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, LoadSummary{DB: db, Metas: 4, Relations: 3}, resp.Data)
}

func TestLoadCommandRejectsInvalidSpecs(t *testing.T) {
	dir := writeSpec(t, `
package test

meta: "B:order:1": {}

relation: "dangling": {
	from: "B:order:1"
	to:   "B:missing:1"
	executor: [{protocol: "local", url: "x"}]
}
`)
	db := filepath.Join(t.TempDir(), "nature.db")

	out, _, err := execute(t, "--db", db, "load", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, compiler.ErrRelationUnresolved)

	// Nothing was written.
	_, statErr := os.Stat(db)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadCommandSkipValidate(t *testing.T) {
	dir := writeSpec(t, `
package test

meta: "B:order:1": {}

relation: "dangling": {
	from: "B:order:1"
	to:   "B:missing:1"
	executor: [{protocol: "local", url: "x"}]
}
`)
	db := filepath.Join(t.TempDir(), "nature.db")

	_, _, err := execute(t, "--db", db, "load", "--skip-validate", dir)
	require.NoError(t, err)
}

func TestMetaCommand(t *testing.T) {
	db := loadedDB(t)

	out, _, err := execute(t, "--db", db, "meta", "B:sale/order:1")
	require.NoError(t, err)
	assert.Contains(t, out, "B:sale/order:1")
	assert.Contains(t, out, "states: new, paid, cancelled")
}

func TestMetaCommandJSON(t *testing.T) {
	db := loadedDB(t)

	out, _, err := execute(t, "--db", db, "--format", "json", "meta", "B:finance/invoice:1")
	require.NoError(t, err)

	var resp struct {
		Data model.Meta `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "finance/invoice", resp.Data.Key)
	assert.Equal(t, []string{"open", "closed"}, resp.Data.States)
}

func TestMetaCommandNotDefined(t *testing.T) {
	db := loadedDB(t)

	out, _, err := execute(t, "--db", db, "meta", "B:sale/refund:1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotDefined)
}

func TestMetaCommandMalformedID(t *testing.T) {
	db := loadedDB(t)

	out, _, err := execute(t, "--db", db, "meta", "nonsense")
	require.Error(t, err)
	assert.Contains(t, out, ErrCodeRoute)
}

func TestRelationsCommand(t *testing.T) {
	db := loadedDB(t)

	out, _, err := execute(t, "--db", db, "relations", "B:sale/order:1")
	require.NoError(t, err)
	assert.Contains(t, out, "B:sale/order:1 → B:crm/reminder:1  local:remind")
	assert.Contains(t, out, "http:http://ship-old/convert [carriers] x0")
	assert.Contains(t, out, "http:http://ship-new/convert [carriers] x1")
}

func TestRelationsCommandNone(t *testing.T) {
	db := loadedDB(t)

	out, _, err := execute(t, "--db", db, "relations", "B:crm/reminder:1")
	require.NoError(t, err)
	assert.Contains(t, out, "No relations from B:crm/reminder:1")
}

func writeInstanceFile(t *testing.T, inst model.Instance) string {
	t.Helper()
	data, err := json.Marshal(inst)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "instance.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRouteCommandFromFile(t *testing.T) {
	db := loadedDB(t)
	path := writeInstanceFile(t, model.Instance{
		ID:     "42",
		Meta:   "B:sale/order:1",
		States: []string{"paid"},
	})

	out, _, err := execute(t, "--db", db, "--format", "json", "route", path, "--seed", "7")
	require.NoError(t, err)

	var resp struct {
		Data RouteResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Missions, 2)
	assert.Equal(t, "B:finance/invoice:1", resp.Data.Missions[0].To.String())
	assert.Equal(t, "http://ship-new/convert", resp.Data.Missions[1].Executor.URL)
}

func TestRouteCommandDelayWithFixedClock(t *testing.T) {
	db := loadedDB(t)
	path := writeInstanceFile(t, model.Instance{
		ID:   "43",
		Meta: "B:sale/order:1",
		Para: "1700000100/web",
	})

	out, _, err := execute(t, "--db", db, "route", path, "--now", "1700000000")
	require.NoError(t, err)
	assert.Contains(t, out, "1 mission(s) for B:sale/order:1 43")
	assert.Contains(t, out, "→ B:crm/reminder:1")
	assert.Contains(t, out, "delay 160s")
}

func TestRouteCommandFromStore(t *testing.T) {
	db := loadedDB(t)

	st, err := store.Open(db)
	require.NoError(t, err)
	_, err = st.WriteInstance(context.Background(), model.Instance{
		ID:     "7",
		Meta:   "B:sale/order:1",
		States: []string{"paid"},
		Context: map[string]string{
			"pickup": "yes",
		},
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := execute(t, "--db", db, "route", "--meta", "B:sale/order:1", "--id", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "1 mission(s)")
	assert.Contains(t, out, "→ B:finance/invoice:1")
	assert.NotContains(t, out, "shipment")
}

func TestRouteCommandStoredInstanceMissing(t *testing.T) {
	db := loadedDB(t)

	out, _, err := execute(t, "--db", db, "route", "--meta", "B:sale/order:1", "--id", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "not found")
}

func TestRouteCommandNoMissions(t *testing.T) {
	db := loadedDB(t)
	path := writeInstanceFile(t, model.Instance{
		ID:     "44",
		Meta:   "B:sale/order:1",
		States: []string{"cancelled"},
	})

	out, _, err := execute(t, "--db", db, "route", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No missions for B:sale/order:1 44")
}

func TestRouteCommandNotDefined(t *testing.T) {
	db := loadedDB(t)
	path := writeInstanceFile(t, model.Instance{ID: "1", Meta: "B:sale/refund:1"})

	out, _, err := execute(t, "--db", db, "route", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotDefined)
}

func TestRouteCommandInputErrors(t *testing.T) {
	db := loadedDB(t)
	path := writeInstanceFile(t, model.Instance{ID: "1", Meta: "B:sale/order:1"})

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no input", []string{"route"}, "are required"},
		{"both inputs", []string{"route", path, "--meta", "B:sale/order:1", "--id", "1"}, "not both"},
		{"meta without id", []string{"route", "--meta", "B:sale/order:1"}, "together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, append([]string{"--db", db}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, ErrCodeInput)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestRouteCommandMetrics(t *testing.T) {
	db := loadedDB(t)
	path := writeInstanceFile(t, model.Instance{ID: "1", Meta: "B:sale/order:1", States: []string{"paid"}})

	_, errOut, err := execute(t, "--db", db, "route", path, "--metrics")
	require.NoError(t, err)
	assert.Contains(t, errOut, "nature_cache_requests_total")
	assert.Contains(t, errOut, "nature_missions_total")
}

func TestReadInstanceFile(t *testing.T) {
	_, err := readInstanceFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = readInstanceFile(bad)
	require.Error(t, err)

	noMeta := writeInstanceFile(t, model.Instance{ID: "1"})
	_, err = readInstanceFile(noMeta)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "meta is required")
}

func TestRouteCommandMetricsJSON(t *testing.T) {
	db := loadedDB(t)
	path := writeInstanceFile(t, model.Instance{ID: "1", Meta: "B:sale/order:1", States: []string{"paid"}})

	out, _, err := execute(t, "--db", db, "--format", "json", "route", path, "--metrics")
	require.NoError(t, err)

	var resp struct {
		Data RouteResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Positive(t, resp.Data.Metrics["nature_missions_total"])
}
