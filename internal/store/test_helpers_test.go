package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/nature/internal/model"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestMeta creates a business meta row with the given states.
func createTestMeta(key string, version int32, states string) model.RawMeta {
	return model.RawMeta{
		MetaType: "B",
		MetaKey:  key,
		Version:  version,
		States:   states,
		Flag:     1,
	}
}

// createTestRelation creates an active relation row with one http executor.
func createTestRelation(from, to string) model.RawRelation {
	return model.RawRelation{
		From:     from,
		To:       to,
		Settings: `{"executor":[{"protocol":"http","url":"http://localhost/` + to + `"}]}`,
		Flag:     model.RelationActive,
	}
}
