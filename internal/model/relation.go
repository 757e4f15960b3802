package model

import (
	"encoding/json"
	"slices"
)

// Protocol identifies how an executor is invoked.
type Protocol string

const (
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
	ProtocolLocal Protocol = "local"
	ProtocolAuto  Protocol = "auto"
)

// ValidProtocols defines the allowed executor protocols.
var ValidProtocols = map[Protocol]bool{
	ProtocolHTTP:  true,
	ProtocolHTTPS: true,
	ProtocolLocal: true,
	ProtocolAuto:  true,
}

// DefaultProportion is the weight of an executor that does not declare one.
const DefaultProportion float32 = 1

// Executor is a downstream invocation target with its group and weight.
// Executor is comparable and is used as a map key by the balancer.
type Executor struct {
	Protocol   Protocol `json:"protocol"`
	URL        string   `json:"url"`
	Group      string   `json:"group,omitempty"`
	Proportion float32  `json:"proportion"`
}

// UnmarshalJSON applies DefaultProportion when "proportion" is absent.
func (e *Executor) UnmarshalJSON(data []byte) error {
	type plain Executor
	aux := struct {
		*plain
		Proportion *float32 `json:"proportion"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Proportion == nil {
		e.Proportion = DefaultProportion
	} else {
		e.Proportion = *aux.Proportion
	}
	return nil
}

// FlowSelector is the all/any/none condition gating a relation.
type FlowSelector struct {
	StateAll       []string `json:"state_all,omitempty"`
	StateAny       []string `json:"state_any,omitempty"`
	StateNone      []string `json:"state_none,omitempty"`
	ContextAll     []string `json:"context_all,omitempty"`
	ContextAny     []string `json:"context_any,omitempty"`
	ContextNone    []string `json:"context_none,omitempty"`
	SysContextAll  []string `json:"sys_context_all,omitempty"`
	SysContextAny  []string `json:"sys_context_any,omitempty"`
	SysContextNone []string `json:"sys_context_none,omitempty"`
}

// IsEmpty reports whether the selector has no conditions at all.
func (s *FlowSelector) IsEmpty() bool {
	if s == nil {
		return true
	}
	return len(s.StateAll)+len(s.StateAny)+len(s.StateNone)+
		len(s.ContextAll)+len(s.ContextAny)+len(s.ContextNone)+
		len(s.SysContextAll)+len(s.SysContextAny)+len(s.SysContextNone) == 0
}

// Clone returns a deep copy.
func (s *FlowSelector) Clone() *FlowSelector {
	if s == nil {
		return nil
	}
	return &FlowSelector{
		StateAll:       slices.Clone(s.StateAll),
		StateAny:       slices.Clone(s.StateAny),
		StateNone:      slices.Clone(s.StateNone),
		ContextAll:     slices.Clone(s.ContextAll),
		ContextAny:     slices.Clone(s.ContextAny),
		ContextNone:    slices.Clone(s.ContextNone),
		SysContextAll:  slices.Clone(s.SysContextAll),
		SysContextAny:  slices.Clone(s.SysContextAny),
		SysContextNone: slices.Clone(s.SysContextNone),
	}
}

// TargetStates lists states to add to and remove from the downstream instance.
type TargetStates struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}

// TargetDemand is what the downstream instance must look like on completion.
type TargetDemand struct {
	States     *TargetStates `json:"states,omitempty"`
	AppendPara []int         `json:"append_para,omitempty"` // upstream para part indexes
}

// StateNames returns every state name referenced by the demand.
func (t *TargetDemand) StateNames() []string {
	if t == nil || t.States == nil {
		return nil
	}
	names := make([]string, 0, len(t.States.Add)+len(t.States.Remove))
	names = append(names, t.States.Add...)
	return append(names, t.States.Remove...)
}

// Clone returns a deep copy.
func (t *TargetDemand) Clone() *TargetDemand {
	if t == nil {
		return nil
	}
	c := &TargetDemand{AppendPara: slices.Clone(t.AppendPara)}
	if t.States != nil {
		c.States = &TargetStates{
			Add:    slices.Clone(t.States.Add),
			Remove: slices.Clone(t.States.Remove),
		}
	}
	return c
}

// DelayOnPara computes a delay from a timestamp carried in the upstream para.
//
// Part is the index of the "/"-separated para segment holding a Unix
// timestamp in seconds; Offset is added to the difference to now.
type DelayOnPara struct {
	Offset int `json:"offset"`
	Part   int `json:"part"`
}

// RelationSettings is the decoded settings blob of a relation row.
type RelationSettings struct {
	Selector      *FlowSelector `json:"selector,omitempty"`
	Executor      []Executor    `json:"executor"`
	ConvertBefore []Executor    `json:"convert_before,omitempty"`
	ConvertAfter  []Executor    `json:"convert_after,omitempty"`
	UseUpstreamID bool          `json:"use_upstream_id,omitempty"`
	Target        *TargetDemand `json:"target,omitempty"`
	Delay         int           `json:"delay,omitempty"`
	DelayOnPara   *DelayOnPara  `json:"delay_on_para,omitempty"`
}

// RawRelation is an undecoded relation row as held by a definition store.
type RawRelation struct {
	From     string `json:"from_meta"`
	To       string `json:"to_meta"`
	Settings string `json:"settings"`
	Flag     int    `json:"flag"` // 1 = active
}

// RelationActive is the Flag value of an active relation row.
const RelationActive = 1

// Relation is one decoded routing edge with a single executor.
type Relation struct {
	From          string        `json:"from"`
	To            Meta          `json:"to"`
	Selector      *FlowSelector `json:"selector,omitempty"`
	Executor      Executor      `json:"executor"`
	ConvertBefore []Executor    `json:"convert_before,omitempty"`
	ConvertAfter  []Executor    `json:"convert_after,omitempty"`
	UseUpstreamID bool          `json:"use_upstream_id,omitempty"`
	Target        *TargetDemand `json:"target,omitempty"`
	Delay         int           `json:"delay,omitempty"`
	DelayOnPara   *DelayOnPara  `json:"delay_on_para,omitempty"`
}

// Clone returns a deep copy.
func (r Relation) Clone() Relation {
	c := r
	c.To = r.To.Clone()
	c.Selector = r.Selector.Clone()
	c.ConvertBefore = slices.Clone(r.ConvertBefore)
	c.ConvertAfter = slices.Clone(r.ConvertAfter)
	c.Target = r.Target.Clone()
	if r.DelayOnPara != nil {
		d := *r.DelayOnPara
		c.DelayOnPara = &d
	}
	return c
}

// CloneRelations deep-copies a relation list. A nil input yields an empty,
// non-nil slice so callers can tell "no relations" from "not loaded".
func CloneRelations(rels []Relation) []Relation {
	out := make([]Relation, len(rels))
	for i, r := range rels {
		out[i] = r.Clone()
	}
	return out
}
