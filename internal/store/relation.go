package store

import (
	"context"

	"github.com/roach88/nature/internal/meta"
	"github.com/roach88/nature/internal/model"
)

// GetRelations returns the active relation rows leaving from, ordered by
// to_meta. Implements relation.Getter.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) GetRelations(ctx context.Context, from string) ([]model.RawRelation, error) {
	return s.queryRelations(ctx, "query relations", `
		SELECT from_meta, to_meta, settings, flag
		FROM relation
		WHERE from_meta = ? AND flag = ?
		ORDER BY to_meta COLLATE BINARY ASC
	`, from, model.RelationActive)
}

// RelationsTo returns every relation row, active or not, pointing at to.
func (s *Store) RelationsTo(ctx context.Context, to string) ([]model.RawRelation, error) {
	return s.queryRelations(ctx, "query relations to", `
		SELECT from_meta, to_meta, settings, flag
		FROM relation
		WHERE to_meta = ?
		ORDER BY from_meta COLLATE BINARY ASC
	`, to)
}

// ListRelations returns every relation row ordered by from and to.
func (s *Store) ListRelations(ctx context.Context) ([]model.RawRelation, error) {
	return s.queryRelations(ctx, "query all relations", `
		SELECT from_meta, to_meta, settings, flag
		FROM relation
		ORDER BY from_meta COLLATE BINARY ASC, to_meta COLLATE BINARY ASC
	`)
}

// WriteRelation inserts or replaces the row for (From, To). Both ids are
// stored in canonical form.
func (s *Store) WriteRelation(ctx context.Context, raw model.RawRelation) error {
	from, to, err := canonicalPair(raw.From, raw.To)
	if err != nil {
		return err
	}
	raw.From, raw.To = from, to

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relation (from_meta, to_meta, settings, flag)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(from_meta, to_meta) DO UPDATE SET
			settings = excluded.settings,
			flag     = excluded.flag
	`, raw.From, raw.To, raw.Settings, raw.Flag)
	if err != nil {
		return envError("write relation", err)
	}
	return nil
}

// DeleteRelation removes the row for (from, to). Deleting a missing row is
// not an error.
func (s *Store) DeleteRelation(ctx context.Context, from, to string) error {
	from, to, err := canonicalPair(from, to)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM relation WHERE from_meta = ? AND to_meta = ?
	`, from, to); err != nil {
		return envError("delete relation", err)
	}
	return nil
}

func (s *Store) queryRelations(ctx context.Context, op, query string, args ...any) ([]model.RawRelation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, envError(op, err)
	}
	defer rows.Close()

	rels := []model.RawRelation{}
	for rows.Next() {
		var r model.RawRelation
		if err := rows.Scan(&r.From, &r.To, &r.Settings, &r.Flag); err != nil {
			return nil, envError("scan relation", err)
		}
		rels = append(rels, r)
	}
	if err := rows.Err(); err != nil {
		return nil, envError(op, err)
	}
	return rels, nil
}

// canonicalPair parses both ends of a relation and returns their canonical
// identifiers.
func canonicalPair(from, to string) (string, string, error) {
	f, err := meta.Parse(from)
	if err != nil {
		return "", "", err
	}
	t, err := meta.Parse(to)
	if err != nil {
		return "", "", err
	}
	return f.String(), t.String(), nil
}
