// Package web provides the HTTP surface for rule management, dry-runs and the
// execution log.
package web

import "github.com/bidflow/bidflow/pkg/models"

// ConditionRequest is one condition in a rule create/update body.
type ConditionRequest struct {
	Field    string `json:"field"    validate:"required"`
	Operator string `json:"operator" validate:"required"`
	Value    any    `json:"value"`
}

// ActionRequest is one action in a rule create/update body.
type ActionRequest struct {
	Type   string         `json:"type" validate:"required"`
	Params map[string]any `json:"params"`
}

// CreateRuleRequest represents the request body for creating a new rule.
// Enabled defaults to false so operators can dry-run a rule before it starts
// firing.
type CreateRuleRequest struct {
	Name        string             `json:"name"         validate:"required,min=3"`
	Description string             `json:"description"`
	TriggerType string             `json:"trigger_type" validate:"required"`
	Priority    int                `json:"priority"`
	Enabled     bool               `json:"enabled"`
	Conditions  []ConditionRequest `json:"conditions"   validate:"dive"`
	Actions     []ActionRequest    `json:"actions"      validate:"dive"`
}

// UpdateRuleRequest represents the request body for updating an existing rule.
// Scalar fields are optional; a provided conditions or actions list replaces
// the stored list whole.
type UpdateRuleRequest struct {
	Name        *string             `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string             `json:"description,omitempty"`
	Priority    *int                `json:"priority,omitempty"`
	Enabled     *bool               `json:"enabled,omitempty"`
	Conditions  *[]ConditionRequest `json:"conditions,omitempty"  validate:"omitempty,dive"`
	Actions     *[]ActionRequest    `json:"actions,omitempty"     validate:"omitempty,dive"`
}

func toConditions(requests []ConditionRequest) []models.Condition {
	conditions := make([]models.Condition, 0, len(requests))
	for _, req := range requests {
		conditions = append(conditions, models.Condition{
			Field:    req.Field,
			Operator: models.Operator(req.Operator),
			Value:    req.Value,
		})
	}

	return conditions
}

func toActions(requests []ActionRequest) []models.Action {
	actions := make([]models.Action, 0, len(requests))
	for _, req := range requests {
		actions = append(actions, models.Action{
			Type:   models.ActionType(req.Type),
			Params: req.Params,
		})
	}

	return actions
}
