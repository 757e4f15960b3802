package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/nature/internal/model"
)

// WriteInstance inserts an instance. The key is (Meta, ID, Para,
// StateVersion); writing an existing key is silently ignored and reported
// as inserted=false.
func (s *Store) WriteInstance(ctx context.Context, inst model.Instance) (inserted bool, err error) {
	if inst.ID == "" || inst.Meta == "" {
		return false, model.NewVerifyError("instance needs both id and meta")
	}
	if inst.CreateTime.IsZero() {
		inst.CreateTime = time.Now()
	}

	ctxJSON, err := marshalStringMap(inst.Context)
	if err != nil {
		return false, fmt.Errorf("write instance: %w", err)
	}
	sysJSON, err := marshalStringMap(inst.SysContext)
	if err != nil {
		return false, fmt.Errorf("write instance: %w", err)
	}
	statesJSON, err := marshalStates(inst.States)
	if err != nil {
		return false, fmt.Errorf("write instance: %w", err)
	}
	fromJSON, err := marshalFrom(inst.From)
	if err != nil {
		return false, fmt.Errorf("write instance: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO instances
		(meta, id, para, state_version, content, context, sys_context, states, from_key, create_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(meta, id, para, state_version) DO NOTHING
	`,
		inst.Meta,
		inst.ID,
		inst.Para,
		inst.StateVersion,
		inst.Content,
		ctxJSON,
		sysJSON,
		statesJSON,
		fromJSON,
		toMillis(inst.CreateTime),
	)
	if err != nil {
		return false, envError("write instance", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, envError("write instance", err)
	}
	return n > 0, nil
}

// ReadInstance returns the highest state version of the instance keyed by
// (meta, id, para), or (nil, nil) if there is none.
func (s *Store) ReadInstance(ctx context.Context, meta, id, para string) (*model.Instance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT meta, id, para, state_version, content, context, sys_context, states, from_key, create_time
		FROM instances
		WHERE meta = ? AND id = ? AND para = ?
		ORDER BY state_version DESC
		LIMIT 1
	`, meta, id, para)
	if err != nil {
		return nil, envError("query instance", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, envError("query instance", err)
		}
		return nil, nil
	}

	inst, err := scanInstance(rows)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func scanInstance(row scanner) (model.Instance, error) {
	var (
		inst                       model.Instance
		ctxJSON, sysJSON, statesJS string
		fromJSON                   string
		createMillis               int64
	)
	if err := row.Scan(
		&inst.Meta,
		&inst.ID,
		&inst.Para,
		&inst.StateVersion,
		&inst.Content,
		&ctxJSON,
		&sysJSON,
		&statesJS,
		&fromJSON,
		&createMillis,
	); err != nil {
		return model.Instance{}, envError("scan instance", err)
	}

	var err error
	if inst.Context, err = unmarshalStringMap(ctxJSON); err != nil {
		return model.Instance{}, model.NewSystemError("instance %s: %v", inst.ID, err)
	}
	if inst.SysContext, err = unmarshalStringMap(sysJSON); err != nil {
		return model.Instance{}, model.NewSystemError("instance %s: %v", inst.ID, err)
	}
	if inst.States, err = unmarshalStates(statesJS); err != nil {
		return model.Instance{}, model.NewSystemError("instance %s: %v", inst.ID, err)
	}
	if inst.From, err = unmarshalFrom(fromJSON); err != nil {
		return model.Instance{}, model.NewSystemError("instance %s: %v", inst.ID, err)
	}
	inst.CreateTime = fromMillis(createMillis)
	return inst, nil
}
