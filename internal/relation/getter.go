package relation

import (
	"context"

	"github.com/roach88/nature/internal/model"
)

// Getter fetches the relation rows whose upstream is from.
//
// An empty result with a nil error means from has no relations.
type Getter interface {
	GetRelations(ctx context.Context, from string) ([]model.RawRelation, error)
}

// GetterFunc adapts a function to the Getter interface.
type GetterFunc func(ctx context.Context, from string) ([]model.RawRelation, error)

// GetRelations calls f(ctx, from).
func (f GetterFunc) GetRelations(ctx context.Context, from string) ([]model.RawRelation, error) {
	return f(ctx, from)
}
