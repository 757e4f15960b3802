// Package selector evaluates the all/any/none conditions that gate a
// relation against an instance.
//
// Three categories are checked in order: states, context keys and
// sys-context keys. Within a category the none set is checked first, then
// all, then any. The first failing check decides the result.
package selector

import (
	"slices"

	"github.com/roach88/nature/internal/model"
)

// Match reports whether an instance with the given states, context and
// sys-context satisfies sel. A nil or empty selector always matches.
func Match(sel *model.FlowSelector, states []string, context, sysContext map[string]string) bool {
	if sel.IsEmpty() {
		return true
	}

	hasState := func(name string) bool { return slices.Contains(states, name) }
	if !matchCategory(sel.StateNone, sel.StateAll, sel.StateAny, hasState) {
		return false
	}
	if !matchCategory(sel.ContextNone, sel.ContextAll, sel.ContextAny, keyIn(context)) {
		return false
	}
	return matchCategory(sel.SysContextNone, sel.SysContextAll, sel.SysContextAny, keyIn(sysContext))
}

// MatchInstance is Match over inst's states, context and sys-context.
func MatchInstance(sel *model.FlowSelector, inst model.Instance) bool {
	return Match(sel, inst.States, inst.Context, inst.SysContext)
}

func matchCategory(none, all, anyOf []string, has func(string) bool) bool {
	if slices.ContainsFunc(none, has) {
		return false
	}
	for _, name := range all {
		if !has(name) {
			return false
		}
	}
	if len(anyOf) > 0 && !slices.ContainsFunc(anyOf, has) {
		return false
	}
	return true
}

func keyIn(m map[string]string) func(string) bool {
	return func(key string) bool {
		_, ok := m[key]
		return ok
	}
}
