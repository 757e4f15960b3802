package compiler

import (
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/nature/internal/meta"
	"github.com/roach88/nature/internal/model"
)

// metaFields lists the keys a meta declaration may carry.
var metaFields = map[string]bool{
	"description": true,
	"states":      true,
	"fields":      true,
	"master":      true,
	"multi":       true,
	"is_state":    true,
	"active":      true,
}

// CompileMeta parses a CUE meta declaration into a definition row.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The declaration's label is the meta identifier:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`meta: "B:sale/order:1": { states: ["new", "paid"] }`)
//	raw, err := CompileMeta(v.LookupPath(cue.MakePath(cue.Str("meta"), cue.Str("B:sale/order:1"))))
//
// The identifier is canonicalised. Master, multi and is_state are folded
// into the row's config JSON; states are joined with ",".
func CompileMeta(v cue.Value) (*model.RawMeta, error) {
	if err := v.Err(); err != nil {
		return nil, cueError(err)
	}

	id := lastLabel(v)
	if id == "" {
		return nil, &CompileError{
			Field:   "meta",
			Message: "meta must be declared under its identifier",
			Pos:     v.Pos(),
		}
	}
	field := "meta." + id

	parsed, err := meta.Parse(id)
	if err != nil {
		return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	if err := checkFields(v, field, metaFields); err != nil {
		return nil, err
	}

	raw := &model.RawMeta{
		MetaType: string(parsed.Type),
		MetaKey:  parsed.Key,
		Version:  parsed.Version,
		Flag:     model.RelationActive,
	}

	if raw.Description, err = optionalString(v, "description"); err != nil {
		return nil, err
	}
	if raw.Fields, err = optionalString(v, "fields"); err != nil {
		return nil, err
	}

	states, err := optionalStrings(v, "states")
	if err != nil {
		return nil, err
	}
	raw.States = strings.Join(states, ",")

	var setting model.MetaSetting
	if setting.Master, err = optionalString(v, "master"); err != nil {
		return nil, err
	}
	if setting.MultiMeta, err = optionalStrings(v, "multi"); err != nil {
		return nil, err
	}
	if setting.IsState, err = optionalBool(v, "is_state", false); err != nil {
		return nil, err
	}
	if setting.Master != "" || len(setting.MultiMeta) > 0 || setting.IsState {
		data, err := json.Marshal(setting)
		if err != nil {
			return nil, fmt.Errorf("encode config of %s: %w", id, err)
		}
		raw.Config = string(data)
	}

	active, err := optionalBool(v, "active", true)
	if err != nil {
		return nil, err
	}
	if !active {
		raw.Flag = 0
	}

	return raw, nil
}

// lastLabel returns the unquoted final path selector of v, or "".
func lastLabel(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	sel := sels[len(sels)-1]
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

// checkFields rejects regular fields of v that are not in allowed.
func checkFields(v cue.Value, field string, allowed map[string]bool) error {
	iter, err := v.Fields()
	if err != nil {
		return cueError(err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		if !allowed[name] {
			return &CompileError{
				Field:   field + "." + name,
				Message: "unknown field",
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

func optionalString(v cue.Value, name string) (string, error) {
	fv := v.LookupPath(cue.MakePath(cue.Str(name)))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", cueError(err)
	}
	return s, nil
}

func optionalStrings(v cue.Value, name string) ([]string, error) {
	fv := v.LookupPath(cue.MakePath(cue.Str(name)))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, cueError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, cueError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func optionalBool(v cue.Value, name string, def bool) (bool, error) {
	fv := v.LookupPath(cue.MakePath(cue.Str(name)))
	if !fv.Exists() {
		return def, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, cueError(err)
	}
	return b, nil
}
