// Package config loads runtime settings from a YAML file, an optional .env
// file and NATURE_* environment variables, in increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/nature/internal/logging"
)

// Environment variables that override file settings.
const (
	EnvDB          = "NATURE_DB"
	EnvLogLevel    = "NATURE_LOG_LEVEL"
	EnvLogFormat   = "NATURE_LOG_FORMAT"
	EnvLogOutput   = "NATURE_LOG_OUTPUT"
	EnvMetaTTL     = "NATURE_META_TTL"
	EnvRelationTTL = "NATURE_RELATION_TTL"
	EnvSeed        = "NATURE_SEED"
	EnvBusyTimeout = "NATURE_BUSY_TIMEOUT"
)

// Config is the full runtime configuration.
type Config struct {
	DB          string         `yaml:"db"`
	BusyTimeout time.Duration  `yaml:"busy_timeout"` // sqlite lock wait
	Cache       CacheConfig    `yaml:"cache"`
	Balance     BalanceConfig  `yaml:"balance"`
	Log         logging.Config `yaml:"log"`
}

// CacheConfig holds entry lifetimes for the routing caches.
type CacheConfig struct {
	MetaTTL     time.Duration `yaml:"meta_ttl"`
	RelationTTL time.Duration `yaml:"relation_ttl"`
}

// BalanceConfig seeds the weighted group selector. Zero means seed from the
// wall clock.
type BalanceConfig struct {
	Seed uint64 `yaml:"seed"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		DB:          "nature.db",
		BusyTimeout: 5 * time.Second,
		Cache: CacheConfig{
			MetaTTL:     time.Hour,
			RelationTTL: time.Hour,
		},
		Log: logging.DefaultConfig(),
	}
}

// Load builds a Config from defaults, then path (if non-empty), then
// envFile (if it exists), then the process environment.
//
// Unknown YAML keys are rejected.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be defaulted.
func (c Config) Validate() error {
	if c.DB == "" {
		return errors.New("config: db path is empty")
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("config: busy_timeout must not be negative, got %s", c.BusyTimeout)
	}
	if c.Cache.MetaTTL <= 0 {
		return fmt.Errorf("config: cache.meta_ttl must be positive, got %s", c.Cache.MetaTTL)
	}
	if c.Cache.RelationTTL <= 0 {
		return fmt.Errorf("config: cache.relation_ttl must be positive, got %s", c.Cache.RelationTTL)
	}
	return nil
}

func decodeYAML(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDB); ok && v != "" {
		cfg.DB = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		cfg.Log.Format = v
	}
	if v, ok := lookup(EnvLogOutput); ok && v != "" {
		cfg.Log.Output = v
	}
	if v, ok := lookup(EnvMetaTTL); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvMetaTTL, err)
		}
		cfg.Cache.MetaTTL = d
	}
	if v, ok := lookup(EnvRelationTTL); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvRelationTTL, err)
		}
		cfg.Cache.RelationTTL = d
	}
	if v, ok := lookup(EnvBusyTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvBusyTimeout, err)
		}
		cfg.BusyTimeout = d
	}
	if v, ok := lookup(EnvSeed); ok && v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvSeed, err)
		}
		cfg.Balance.Seed = seed
	}
	return nil
}
