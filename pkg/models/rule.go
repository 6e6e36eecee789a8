// Package models defines the core domain models for the workflow automation engine.
package models

import "time"

// TriggerType identifies the upstream event that can fire rules.
type TriggerType string

const (
	TriggerEntityCreated       TriggerType = "entity_created"
	TriggerStageChanged        TriggerType = "stage_changed"
	TriggerDeadlineApproaching TriggerType = "deadline_approaching"
	TriggerScoreThreshold      TriggerType = "score_threshold"
)

// TriggerTypes lists every supported trigger type.
var TriggerTypes = []TriggerType{
	TriggerEntityCreated,
	TriggerStageChanged,
	TriggerDeadlineApproaching,
	TriggerScoreThreshold,
}

// Valid reports whether t is a known trigger type.
func (t TriggerType) Valid() bool {
	for _, known := range TriggerTypes {
		if t == known {
			return true
		}
	}

	return false
}

// Operator is a condition comparison operator.
type Operator string

const (
	OperatorEquals   Operator = "equals"
	OperatorGt       Operator = "gt"
	OperatorLt       Operator = "lt"
	OperatorContains Operator = "contains"
	OperatorInList   Operator = "in_list"
)

// Operators lists every supported condition operator.
var Operators = []Operator{
	OperatorEquals,
	OperatorGt,
	OperatorLt,
	OperatorContains,
	OperatorInList,
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	for _, known := range Operators {
		if o == known {
			return true
		}
	}

	return false
}

// ActionType identifies a registered action handler.
type ActionType string

const (
	ActionMoveStage        ActionType = "move_stage"
	ActionAssignUser       ActionType = "assign_user"
	ActionSendNotification ActionType = "send_notification"
	ActionAddTag           ActionType = "add_tag"
	ActionEvaluateTeaming  ActionType = "evaluate_teaming"
)

// Condition is a single field/operator/value test against an entity snapshot.
// Field is a dot path into the snapshot (e.g. "score", "agency.name").
type Condition struct {
	Field    string   `json:"field"    validate:"required"`
	Operator Operator `json:"operator" validate:"required"`
	Value    any      `json:"value"`
}

// Action is one side-effecting operation performed when a rule matches.
// Params carries handler-specific configuration validated against the
// handler's schema at save time.
type Action struct {
	Type   ActionType     `json:"type"   validate:"required"`
	Params map[string]any `json:"params"`
}

// Rule is a workflow automation rule: when an event of TriggerType occurs and
// every condition holds, the actions run in list order. Conditions and actions
// have no identity outside their rule; updates replace both lists whole.
type Rule struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"         validate:"required,min=3"`
	Description string      `json:"description"`
	TriggerType TriggerType `json:"trigger_type" validate:"required"`
	Priority    int         `json:"priority"`
	Enabled     bool        `json:"enabled"`
	Conditions  []Condition `json:"conditions"`
	Actions     []Action    `json:"actions"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Less orders rules for dispatch: priority ascending, ties broken by ID
// ascending so repeated runs over the same rule set are deterministic.
func (r *Rule) Less(other *Rule) bool {
	if r.Priority != other.Priority {
		return r.Priority < other.Priority
	}

	return r.ID < other.ID
}
