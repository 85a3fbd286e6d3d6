package orchestrator

import "time"

type RequestState string

const (
	StateIdle       RequestState = "idle"
	StateRequesting RequestState = "requesting"
	StateApplied    RequestState = "applied"
	StateFailed     RequestState = "failed"
)

// TaskTarget identifies the initial decomposition of a new task.
const TaskTarget = "task"

// StepTarget identifies the breakdown of one step.
func StepTarget(stepID string) string {
	return "step:" + stepID
}

// Status describes a decomposition target. State is either StateIdle or
// StateRequesting; Outcome records how the last request settled.
type Status struct {
	Target    string       `json:"target"`
	State     RequestState `json:"state"`
	Outcome   RequestState `json:"outcome,omitempty"`
	Error     string       `json:"error,omitempty"`
	SettledAt time.Time    `json:"settledAt,omitzero"`
}
