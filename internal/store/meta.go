package store

import (
	"context"
	"time"

	"github.com/roach88/nature/internal/meta"
	"github.com/roach88/nature/internal/model"
)

// GetMeta returns the definition row for id, or (nil, nil) if none exists.
// Implements meta.Getter.
func (s *Store) GetMeta(ctx context.Context, id string) (*model.RawMeta, error) {
	m, err := meta.Parse(id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT meta_type, meta_key, version, description, states, fields, config, flag, create_time
		FROM meta
		WHERE meta_type = ? AND meta_key = ? AND version = ?
	`, string(m.Type), m.Key, m.Version)
	if err != nil {
		return nil, envError("query meta", err)
	}
	defer rows.Close()

	var found []model.RawMeta
	for rows.Next() {
		raw, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, envError("iterate meta", err)
	}

	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return &found[0], nil
	default:
		return nil, model.NewSystemError("meta %s matched %d rows", id, len(found))
	}
}

// WriteMeta inserts or replaces a definition row. The key is stored in its
// canonical form so GetMeta finds it. A zero CreateTime is set to now.
func (s *Store) WriteMeta(ctx context.Context, raw model.RawMeta) error {
	parsed, err := meta.Parse(raw.MetaString())
	if err != nil {
		return err
	}
	raw.MetaKey = parsed.Key
	if raw.CreateTime.IsZero() {
		raw.CreateTime = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO meta
		(meta_type, meta_key, version, description, states, fields, config, flag, create_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(meta_type, meta_key, version) DO UPDATE SET
			description = excluded.description,
			states      = excluded.states,
			fields      = excluded.fields,
			config      = excluded.config,
			flag        = excluded.flag
	`,
		raw.MetaType,
		raw.MetaKey,
		raw.Version,
		raw.Description,
		raw.States,
		raw.Fields,
		raw.Config,
		raw.Flag,
		toMillis(raw.CreateTime),
	)
	if err != nil {
		return envError("write meta", err)
	}
	return nil
}

// DeleteMeta removes the definition row for id. Deleting a meta that an
// active relation still points at is a VERIFY error.
func (s *Store) DeleteMeta(ctx context.Context, id string) error {
	m, err := meta.Parse(id)
	if err != nil {
		return err
	}

	refs, err := s.RelationsTo(ctx, m.String())
	if err != nil {
		return err
	}
	for _, r := range refs {
		if r.Flag == model.RelationActive {
			return model.NewVerifyError("meta %s is the target of active relation from %s", m, r.From)
		}
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM meta WHERE meta_type = ? AND meta_key = ? AND version = ?
	`, string(m.Type), m.Key, m.Version); err != nil {
		return envError("delete meta", err)
	}
	return nil
}

// ListMetas returns every definition row ordered by type, key and version.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListMetas(ctx context.Context) ([]model.RawMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT meta_type, meta_key, version, description, states, fields, config, flag, create_time
		FROM meta
		ORDER BY meta_type COLLATE BINARY ASC, meta_key COLLATE BINARY ASC, version ASC
	`)
	if err != nil {
		return nil, envError("query metas", err)
	}
	defer rows.Close()

	metas := []model.RawMeta{}
	for rows.Next() {
		raw, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		metas = append(metas, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, envError("iterate metas", err)
	}
	return metas, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeta(row scanner) (model.RawMeta, error) {
	var raw model.RawMeta
	var createMillis int64
	if err := row.Scan(
		&raw.MetaType,
		&raw.MetaKey,
		&raw.Version,
		&raw.Description,
		&raw.States,
		&raw.Fields,
		&raw.Config,
		&raw.Flag,
		&createMillis,
	); err != nil {
		return model.RawMeta{}, envError("scan meta", err)
	}
	raw.CreateTime = fromMillis(createMillis)
	return raw, nil
}
