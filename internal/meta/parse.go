package meta

import (
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/nature/internal/model"
)

// Parse resolves an identifier of the form "<type>:<key>:<version>".
//
// The key is NFC-normalised and may itself contain ":". It must be
// non-empty for every type except N. The version must be a positive
// integer. Parse never consults a store; the result carries no states or
// settings.
func Parse(id string) (model.Meta, error) {
	if id == "" {
		return model.Meta{}, model.NewVerifyError("meta id is empty")
	}
	id = norm.NFC.String(id)

	first := strings.Index(id, model.MetaSeparator)
	last := strings.LastIndex(id, model.MetaSeparator)
	if first < 0 || first == last {
		return model.Meta{}, model.NewVerifyError("meta id %q must be <type>:<key>:<version>", id)
	}

	typ := model.MetaType(id[:first])
	if !model.ValidMetaTypes[typ] {
		return model.Meta{}, model.NewVerifyError("meta id %q has unknown type %q", id, typ)
	}

	key := id[first+1 : last]
	if key == "" && typ != model.MetaNull {
		return model.Meta{}, model.NewVerifyError("meta id %q has an empty key", id)
	}

	version, err := strconv.ParseInt(id[last+1:], 10, 32)
	if err != nil || version <= 0 {
		return model.Meta{}, model.NewVerifyError("meta id %q must end in a positive version", id)
	}

	return model.Meta{Type: typ, Key: key, Version: int32(version)}, nil
}

// FromRaw decodes a definition row.
//
// States are comma-delimited; blanks are ignored and duplicates rejected.
// Config, when present, must be a MetaSetting JSON object. A multi meta
// must list at least one sub-meta.
func FromRaw(raw *model.RawMeta) (model.Meta, error) {
	if raw == nil {
		return model.Meta{}, model.NewVerifyError("meta definition is nil")
	}

	m, err := Parse(raw.MetaString())
	if err != nil {
		return model.Meta{}, err
	}

	states, dup := parseStates(raw.States)
	if dup != "" {
		return model.Meta{}, model.NewVerifyError("meta %s: duplicate state %q", m, dup)
	}
	m.States = states

	if cfg := strings.TrimSpace(raw.Config); cfg != "" {
		var setting model.MetaSetting
		if err := json.Unmarshal([]byte(cfg), &setting); err != nil {
			return model.Meta{}, model.NewVerifyError("meta %s: invalid config: %v", m, err)
		}
		m.Setting = &setting
	}

	if m.Type == model.MetaMulti && len(m.SubMetas()) == 0 {
		return model.Meta{}, model.NewVerifyError("meta %s: multi meta must list at least one sub-meta", m)
	}

	return m, nil
}

// parseStates splits a comma-delimited state list. On a duplicate name it
// returns that name.
func parseStates(s string) ([]string, string) {
	if strings.TrimSpace(s) == "" {
		return nil, ""
	}

	parts := strings.Split(s, ",")
	states := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		name := norm.NFC.String(strings.TrimSpace(p))
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, name
		}
		seen[name] = true
		states = append(states, name)
	}
	return states, ""
}
