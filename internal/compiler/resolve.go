package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/nature/internal/meta"
	"github.com/roach88/nature/internal/model"
	"github.com/roach88/nature/internal/relation"
)

// CheckReferences decodes every active relation against metas the way the
// router would at runtime. A relation whose downstream meta is undefined,
// whose target names an undeclared state, or that fails any other decode
// rule yields an E312 error. Inactive relations are not checked.
//
// Returns an empty slice (not nil) when every relation resolves.
func CheckReferences(ctx context.Context, metas []model.RawMeta, rels []model.RawRelation) []ValidationError {
	byID := make(map[string]model.RawMeta, len(metas))
	for _, m := range metas {
		parsed, err := meta.Parse(m.MetaString())
		if err != nil {
			continue
		}
		byID[parsed.String()] = m
	}

	getter := meta.GetterFunc(func(_ context.Context, id string) (*model.RawMeta, error) {
		raw, ok := byID[id]
		if !ok {
			return nil, nil
		}
		return &raw, nil
	})

	cache := meta.NewCache()
	gen := relation.UUIDv7Generator{}

	errs := []ValidationError{}
	for _, r := range rels {
		if r.Flag != model.RelationActive {
			continue
		}
		if _, err := cache.Get(ctx, r.From, getter); err != nil {
			errs = append(errs, unresolved(r, "from", err))
			continue
		}
		if _, err := relation.Decode(ctx, r, cache, getter, gen); err != nil {
			errs = append(errs, unresolved(r, "to", err))
		}
	}
	return errs
}

func unresolved(r model.RawRelation, field string, err error) ValidationError {
	return ValidationError{
		Field:   "relation." + field,
		Message: fmt.Sprintf("%s -> %s: %s", r.From, r.To, strings.TrimSpace(err.Error())),
		Code:    ErrRelationUnresolved,
	}
}
