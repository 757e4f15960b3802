package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/nature/internal/meta"
	"github.com/roach88/nature/internal/model"
	"github.com/roach88/nature/internal/relation"
)

// DefinitionWriter is implemented by Store and Memory.
type DefinitionWriter interface {
	WriteMeta(ctx context.Context, raw model.RawMeta) error
	WriteRelation(ctx context.Context, raw model.RawRelation) error
}

// Ensure Store and Memory implement the getter and writer interfaces.
var (
	_ meta.Getter      = (*Store)(nil)
	_ relation.Getter  = (*Store)(nil)
	_ DefinitionWriter = (*Store)(nil)
	_ meta.Getter      = (*Memory)(nil)
	_ relation.Getter  = (*Memory)(nil)
	_ DefinitionWriter = (*Memory)(nil)
)

// Memory is a goroutine-safe, map-backed definition store with the same
// read semantics as Store: missing metas are (nil, nil) and relation rows
// come back active-only, ordered by To.
type Memory struct {
	mu        sync.RWMutex
	metas     map[string]model.RawMeta
	relations map[string]map[string]model.RawRelation // from -> to -> row
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		metas:     make(map[string]model.RawMeta),
		relations: make(map[string]map[string]model.RawRelation),
	}
}

// GetMeta implements meta.Getter.
func (m *Memory) GetMeta(_ context.Context, id string) (*model.RawMeta, error) {
	parsed, err := meta.Parse(id)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, ok := m.metas[parsed.String()]
	if !ok {
		return nil, nil
	}
	return &raw, nil
}

// WriteMeta stores raw under its canonical key, replacing any row with the
// same identifier.
func (m *Memory) WriteMeta(_ context.Context, raw model.RawMeta) error {
	parsed, err := meta.Parse(raw.MetaString())
	if err != nil {
		return err
	}

	raw.MetaKey = parsed.Key

	m.mu.Lock()
	defer m.mu.Unlock()
	m.metas[parsed.String()] = raw
	return nil
}

// GetRelations implements relation.Getter.
func (m *Memory) GetRelations(_ context.Context, from string) ([]model.RawRelation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rels := []model.RawRelation{}
	for _, r := range m.relations[from] {
		if r.Flag == model.RelationActive {
			rels = append(rels, r)
		}
	}
	slices.SortFunc(rels, func(a, b model.RawRelation) int {
		return strings.Compare(a.To, b.To)
	})
	return rels, nil
}

// WriteRelation stores raw under canonical ids, replacing any row with the
// same (From, To).
func (m *Memory) WriteRelation(_ context.Context, raw model.RawRelation) error {
	from, to, err := canonicalPair(raw.From, raw.To)
	if err != nil {
		return err
	}
	raw.From, raw.To = from, to

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.relations[raw.From] == nil {
		m.relations[raw.From] = make(map[string]model.RawRelation)
	}
	m.relations[raw.From][raw.To] = raw
	return nil
}
