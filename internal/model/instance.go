package model

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// ParaSeparator separates the parts of an instance para.
const ParaSeparator = "/"

// Instance is a concrete occurrence of a typed entity or event.
type Instance struct {
	ID           string            `json:"id"`
	Meta         string            `json:"meta"`
	Para         string            `json:"para,omitempty"`
	Content      string            `json:"content,omitempty"`
	Context      map[string]string `json:"context,omitempty"`
	SysContext   map[string]string `json:"sys_context,omitempty"`
	States       []string          `json:"states,omitempty"`
	StateVersion int32             `json:"state_version,omitempty"`
	From         *FromInstance     `json:"from,omitempty"`
	CreateTime   time.Time         `json:"create_time"`
}

// FromInstance identifies the upstream instance an instance was converted from.
type FromInstance struct {
	ID           string `json:"id"`
	Meta         string `json:"meta"`
	Para         string `json:"para,omitempty"`
	StateVersion int32  `json:"state_version,omitempty"`
}

// ParaPart returns the idx-th "/"-separated part of the para.
func (i Instance) ParaPart(idx int) (string, bool) {
	if i.Para == "" || idx < 0 {
		return "", false
	}
	parts := strings.Split(i.Para, ParaSeparator)
	if idx >= len(parts) {
		return "", false
	}
	return parts[idx], true
}

// Clone returns a deep copy.
func (i Instance) Clone() Instance {
	c := i
	c.Context = maps.Clone(i.Context)
	c.SysContext = maps.Clone(i.SysContext)
	c.States = slices.Clone(i.States)
	if i.From != nil {
		f := *i.From
		c.From = &f
	}
	return c
}
