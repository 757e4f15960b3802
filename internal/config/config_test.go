package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "nature.db", cfg.DB)
	assert.Equal(t, time.Hour, cfg.Cache.MetaTTL)
	assert.Equal(t, time.Hour, cfg.Cache.RelationTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 5*time.Second, cfg.BusyTimeout)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "nature.yaml", `
db: /var/lib/nature.db
busy_timeout: 250ms
cache:
  meta_ttl: 10m
  relation_ttl: 90s
balance:
  seed: 42
log:
  level: debug
  format: json
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/nature.db", cfg.DB)
	assert.Equal(t, 250*time.Millisecond, cfg.BusyTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Cache.MetaTTL)
	assert.Equal(t, 90*time.Second, cfg.Cache.RelationTTL)
	assert.Equal(t, uint64(42), cfg.Balance.Seed)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "stderr", cfg.Log.Output, "unset keys keep defaults")
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yaml", ""), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "databse: x.db\n"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "databse")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), "")
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "nature.yaml", "db: file.db\n")
	t.Setenv(EnvDB, "env.db")
	t.Setenv(EnvMetaTTL, "5s")
	t.Setenv(EnvSeed, "7")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "env.db", cfg.DB)
	assert.Equal(t, 5*time.Second, cfg.Cache.MetaTTL)
	assert.Equal(t, uint64(7), cfg.Balance.Seed)
}

func TestLoad_DotEnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "NATURE_LOG_LEVEL=warn\n")
	// Registers cleanup that restores the variable after godotenv sets it.
	t.Setenv(EnvLogLevel, "")
	os.Unsetenv(EnvLogLevel)

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_MissingDotEnvIsFine(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestApplyEnv_BadValues(t *testing.T) {
	testCases := []struct {
		name string
		key  string
		val  string
	}{
		{"meta ttl", EnvMetaTTL, "soon"},
		{"relation ttl", EnvRelationTTL, "1 hour"},
		{"seed", EnvSeed, "-1"},
		{"busy timeout", EnvBusyTimeout, "forever"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			lookup := func(k string) (string, bool) {
				if k == tc.key {
					return tc.val, true
				}
				return "", false
			}
			assert.Error(t, applyEnv(&cfg, lookup))
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Cache.RelationTTL = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.DB = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.BusyTimeout = -time.Second
	assert.Error(t, cfg.Validate())
}
