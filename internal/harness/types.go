package harness

import "github.com/roach88/nature/internal/model"

// MissionSnapshot is the comparable summary of one resolved mission.
type MissionSnapshot struct {
	To           string   `json:"to"`
	Protocol     string   `json:"protocol"`
	Executor     string   `json:"executor"`
	Group        string   `json:"group"`
	Delay        int      `json:"delay"`
	AddStates    []string `json:"add_states,omitempty"`
	RemoveStates []string `json:"remove_states,omitempty"`
}

// Snapshot converts a mission.
func Snapshot(m model.Mission) MissionSnapshot {
	s := MissionSnapshot{
		To:       m.To.String(),
		Protocol: string(m.Executor.Protocol),
		Executor: m.Executor.URL,
		Group:    m.Executor.Group,
		Delay:    m.Delay,
	}
	if m.Target != nil && m.Target.States != nil {
		s.AddStates = m.Target.States.Add
		s.RemoveStates = m.Target.States.Remove
	}
	return s
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Missions are the routed missions in order.
	Missions []MissionSnapshot `json:"missions"`

	// RouteError is the routing error message, if routing failed.
	RouteError string `json:"route_error,omitempty"`

	// Errors contains mismatch messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Missions: []MissionSnapshot{},
		Errors:   []string{},
	}
}

// AddError adds a mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
