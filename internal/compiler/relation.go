package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/nature/internal/meta"
	"github.com/roach88/nature/internal/model"
)

// settingFields are the relation keys that make up the settings blob.
var settingFields = map[string]bool{
	"selector":        true,
	"executor":        true,
	"convert_before":  true,
	"convert_after":   true,
	"use_upstream_id": true,
	"target":          true,
	"delay":           true,
	"delay_on_para":   true,
}

// relationFields lists every key a relation declaration may carry.
var relationFields = map[string]bool{
	"from":            true,
	"to":              true,
	"active":          true,
	"selector":        true,
	"executor":        true,
	"convert_before":  true,
	"convert_after":   true,
	"use_upstream_id": true,
	"target":          true,
	"delay":           true,
	"delay_on_para":   true,
}

// CompileRelation parses a CUE relation declaration into a definition row.
//
// The declaration's label names the relation for diagnostics only; the row
// is identified by its from and to metas, which are canonicalised. Every
// settings key is re-encoded as JSON and checked against the relation
// settings shape, so a misspelt nested key fails here rather than at
// routing time.
//
// Example:
//
//	relation: "order-to-invoice": {
//		from: "B:sale/order:1"
//		to:   "B:finance/invoice:1"
//		executor: [{protocol: "http", url: "http://billing/convert"}]
//	}
func CompileRelation(v cue.Value) (*model.RawRelation, error) {
	if err := v.Err(); err != nil {
		return nil, cueError(err)
	}

	name := lastLabel(v)
	field := "relation." + name
	if err := checkFields(v, field, relationFields); err != nil {
		return nil, err
	}

	from, err := requiredMetaID(v, field, "from")
	if err != nil {
		return nil, err
	}
	to, err := requiredMetaID(v, field, "to")
	if err != nil {
		return nil, err
	}

	if !v.LookupPath(cue.MakePath(cue.Str("executor"))).Exists() {
		return nil, &CompileError{
			Field:   field + ".executor",
			Message: "executor is required",
			Pos:     v.Pos(),
		}
	}

	settings := make(map[string]json.RawMessage)
	iter, err := v.Fields()
	if err != nil {
		return nil, cueError(err)
	}
	for iter.Next() {
		key := iter.Selector().Unquoted()
		if !settingFields[key] {
			continue
		}
		data, err := iter.Value().MarshalJSON()
		if err != nil {
			return nil, cueError(err)
		}
		settings[key] = data
	}

	encoded, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings of %s: %w", name, err)
	}
	if err := checkSettingsShape(encoded); err != nil {
		return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}

	active, err := optionalBool(v, "active", true)
	if err != nil {
		return nil, err
	}
	flag := model.RelationActive
	if !active {
		flag = 0
	}

	return &model.RawRelation{
		From:     from,
		To:       to,
		Settings: string(encoded),
		Flag:     flag,
	}, nil
}

// requiredMetaID reads a mandatory meta identifier field and returns it in
// canonical form.
func requiredMetaID(v cue.Value, field, name string) (string, error) {
	fv := v.LookupPath(cue.MakePath(cue.Str(name)))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field + "." + name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", cueError(err)
	}
	m, err := meta.Parse(s)
	if err != nil {
		return "", &CompileError{Field: field + "." + name, Message: err.Error(), Pos: fv.Pos()}
	}
	return m.String(), nil
}

// checkSettingsShape decodes data strictly into RelationSettings.
func checkSettingsShape(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var s model.RelationSettings
	return dec.Decode(&s)
}
