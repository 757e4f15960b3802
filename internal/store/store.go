package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// DefaultBusyTimeout is how long a connection waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// migrations[i] moves the schema from user_version i to i+1.
var migrations = []func(*sql.DB) error{
	indexRelationTargets,
}

// Store is the sqlite-backed definition store. It holds meta and relation
// rows for the caches and instances for the route command.
//
// A single connection is kept open, so writes are serialized.
type Store struct {
	db          *sql.DB
	busyTimeout time.Duration
}

// Option configures Open.
type Option func(*Store)

// WithBusyTimeout sets the sqlite busy timeout. Non-positive values keep
// DefaultBusyTimeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// Open opens or creates the database at path, applies the connection
// pragmas, and brings the schema up to date. Opening an existing database
// again is harmless.
//
// Failures are ENVIRONMENT errors.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{busyTimeout: DefaultBusyTimeout}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, envError("open "+path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	s.db = db

	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	if err := s.db.Ping(); err != nil {
		return envError("connect", err)
	}
	for _, p := range s.pragmas() {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return envError("pragma "+p.name, err)
		}
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return envError("apply schema", err)
	}
	return s.migrate()
}

type pragma struct {
	name  string
	value string
}

// pragmas lists the connection settings: WAL for concurrent readers,
// NORMAL sync, a lock wait, and foreign key enforcement.
func (s *Store) pragmas() []pragma {
	return []pragma{
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"busy_timeout", fmt.Sprint(s.busyTimeout.Milliseconds())},
		{"foreign_keys", "ON"},
	}
}

// migrate runs every migration past the recorded user_version.
func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return envError("read user_version", err)
	}
	for v := version; v < len(migrations); v++ {
		if err := migrations[v](s.db); err != nil {
			return envError(fmt.Sprintf("migrate to v%d", v+1), err)
		}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
		return envError("write user_version", err)
	}
	return nil
}

// indexRelationTargets lets RelationsTo avoid a table scan.
func indexRelationTargets(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_relation_to_meta ON relation(to_meta)`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return envError("ping", err)
	}
	return nil
}

// pragmaValue reads a pragma as text.
func (s *Store) pragmaValue(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("query %s: %w", name, err)
	}
	return value, nil
}
