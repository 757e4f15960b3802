package model

import (
	"fmt"
	"slices"
	"time"
)

// MetaType is the category tag of a Meta.
type MetaType string

const (
	MetaBusiness MetaType = "B"
	MetaSystem   MetaType = "S"
	MetaDynamic  MetaType = "D"
	MetaNull     MetaType = "N"
	MetaMulti    MetaType = "M"
)

// ValidMetaTypes defines the closed set of meta types.
var ValidMetaTypes = map[MetaType]bool{
	MetaBusiness: true,
	MetaSystem:   true,
	MetaDynamic:  true,
	MetaNull:     true,
	MetaMulti:    true,
}

// MayBeUndefined reports whether a meta of this type is valid without a
// stored definition.
func (t MetaType) MayBeUndefined() bool {
	return t == MetaNull || t == MetaDynamic
}

// MetaSeparator separates type, key and version in a meta identifier.
const MetaSeparator = ":"

// Meta is the versioned schema identity of a business entity or event type.
//
// Meta values are immutable once cached; caches return Clone()s.
type Meta struct {
	Type    MetaType     `json:"type"`
	Key     string       `json:"key"`
	Version int32        `json:"version"`
	States  []string     `json:"states,omitempty"` // declared state names, declaration order
	Setting *MetaSetting `json:"setting,omitempty"`
}

// MetaSetting is the decoded settings blob of a meta definition.
type MetaSetting struct {
	Master    string   `json:"master,omitempty"`     // identifier of the master meta
	MultiMeta []string `json:"multi_meta,omitempty"` // sub-meta identifiers, MetaMulti only
	IsState   bool     `json:"is_state,omitempty"`
}

// String returns the canonical identifier, e.g. "B:sale/order:1".
func (m Meta) String() string {
	return fmt.Sprintf("%s%s%s%s%d", m.Type, MetaSeparator, m.Key, MetaSeparator, m.Version)
}

// IsStateful reports whether instances of this meta carry states.
func (m Meta) IsStateful() bool {
	return len(m.States) > 0 || (m.Setting != nil && m.Setting.IsState)
}

// HasState reports whether name is a declared state.
func (m Meta) HasState(name string) bool {
	return slices.Contains(m.States, name)
}

// Master returns the master identifier, or "" when none is set.
func (m Meta) Master() string {
	if m.Setting == nil {
		return ""
	}
	return m.Setting.Master
}

// SubMetas returns the sub-meta identifiers of a multi meta.
func (m Meta) SubMetas() []string {
	if m.Setting == nil {
		return nil
	}
	return m.Setting.MultiMeta
}

// Clone returns a deep copy.
func (m Meta) Clone() Meta {
	c := m
	c.States = slices.Clone(m.States)
	if m.Setting != nil {
		s := *m.Setting
		s.MultiMeta = slices.Clone(m.Setting.MultiMeta)
		c.Setting = &s
	}
	return c
}

// RawMeta is an undecoded meta definition row as held by a definition store.
type RawMeta struct {
	MetaType    string    `json:"meta_type"`
	MetaKey     string    `json:"meta_key"`
	Version     int32     `json:"version"`
	Description string    `json:"description,omitempty"`
	States      string    `json:"states,omitempty"` // comma-delimited state names
	Fields      string    `json:"fields,omitempty"`
	Config      string    `json:"config,omitempty"` // MetaSetting JSON
	Flag        int       `json:"flag"`
	CreateTime  time.Time `json:"create_time"`
}

// MetaString returns the canonical identifier of the row.
func (r RawMeta) MetaString() string {
	return fmt.Sprintf("%s%s%s%s%d", r.MetaType, MetaSeparator, r.MetaKey, MetaSeparator, r.Version)
}
