package store

import (
	"context"
	"fmt"

	"github.com/roach88/nature/internal/model"
)

// WriteDefinitions writes metas, then relations, stopping at the first
// failure.
func WriteDefinitions(ctx context.Context, w DefinitionWriter, metas []model.RawMeta, rels []model.RawRelation) error {
	for _, raw := range metas {
		if err := w.WriteMeta(ctx, raw); err != nil {
			return fmt.Errorf("failed to load meta %s: %w", raw.MetaString(), err)
		}
	}
	for _, raw := range rels {
		if err := w.WriteRelation(ctx, raw); err != nil {
			return fmt.Errorf("failed to load relation %s -> %s: %w", raw.From, raw.To, err)
		}
	}
	return nil
}
