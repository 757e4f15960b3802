package meta

import (
	"context"

	"github.com/roach88/nature/internal/model"
)

// Getter fetches a meta definition row by canonical identifier.
//
// A nil row with a nil error means no definition exists. Errors should be
// model errors of kind ENVIRONMENT or SYSTEM; they are passed through to the
// caller and never cached.
type Getter interface {
	GetMeta(ctx context.Context, id string) (*model.RawMeta, error)
}

// GetterFunc adapts a function to the Getter interface.
type GetterFunc func(ctx context.Context, id string) (*model.RawMeta, error)

// GetMeta calls f(ctx, id).
func (f GetterFunc) GetMeta(ctx context.Context, id string) (*model.RawMeta, error) {
	return f(ctx, id)
}
