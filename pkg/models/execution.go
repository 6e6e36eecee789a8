package models

import "time"

// ExecutionStatus is the terminal state of one rule firing.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success" // every action succeeded
	ExecutionPartial ExecutionStatus = "partial" // at least one action succeeded and at least one failed
	ExecutionFailed  ExecutionStatus = "failed"  // no action completed
)

// EntityRef identifies a business entity owned by the platform.
type EntityRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// String returns the entity key used for per-entity serialization.
func (e EntityRef) String() string {
	return e.Type + "/" + e.ID
}

// ActionResult is what an action handler reports back to the executor.
// Retryable marks transient failures (timeouts, unreachable collaborators)
// as opposed to permanent validation failures.
type ActionResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// ActionOutcome is the per-action detail recorded on an execution.
type ActionOutcome struct {
	Type       ActionType `json:"type"`
	Success    bool       `json:"success"`
	Message    string     `json:"message,omitempty"`
	Retryable  bool       `json:"retryable,omitempty"`
	DurationMs int64      `json:"duration_ms"`
}

// Execution is one durable record of a rule's attempted firing against one
// entity for one trigger event. Rows are append-only and never mutated;
// RuleID is a non-owning reference that may dangle after rule deletion.
type Execution struct {
	ID               string          `json:"id"`
	RuleID           string          `json:"rule_id"`
	RuleName         string          `json:"rule_name"`
	Entity           EntityRef       `json:"entity"`
	TriggerType      TriggerType     `json:"trigger_type"`
	Status           ExecutionStatus `json:"status"`
	ActionsCompleted int             `json:"actions_completed"`
	Error            string          `json:"error,omitempty"`
	ActionResults    []ActionOutcome `json:"action_results"`
	TriggeredAt      time.Time       `json:"triggered_at"`
}
