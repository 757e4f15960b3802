package model

// Mission is a resolved, instance-specific directive to invoke one executor.
// Missions are built fresh for every resolution and never persisted.
type Mission struct {
	To            Meta          `json:"to"`
	Executor      Executor      `json:"executor"`
	ConvertBefore []Executor    `json:"convert_before,omitempty"`
	ConvertAfter  []Executor    `json:"convert_after,omitempty"`
	UseUpstreamID bool          `json:"use_upstream_id,omitempty"`
	Target        *TargetDemand `json:"target,omitempty"`
	Delay         int           `json:"delay"` // seconds
}
