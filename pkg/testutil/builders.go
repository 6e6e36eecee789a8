// Package testutil provides builders for rules and events used across tests.
package testutil

import (
	"time"

	"github.com/bidflow/bidflow/pkg/models"
)

// RuleOption mutates a rule under construction.
type RuleOption func(*models.Rule)

// NewRule builds an enabled rule with sane defaults.
func NewRule(name string, triggerType models.TriggerType, opts ...RuleOption) *models.Rule {
	rule := &models.Rule{
		Name:        name,
		TriggerType: triggerType,
		Priority:    1,
		Enabled:     true,
		Conditions:  []models.Condition{},
		Actions:     []models.Action{},
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	for _, opt := range opts {
		opt(rule)
	}

	return rule
}

func WithID(id string) RuleOption {
	return func(r *models.Rule) { r.ID = id }
}

func WithPriority(priority int) RuleOption {
	return func(r *models.Rule) { r.Priority = priority }
}

func WithEnabled(enabled bool) RuleOption {
	return func(r *models.Rule) { r.Enabled = enabled }
}

func WithCondition(field string, operator models.Operator, value any) RuleOption {
	return func(r *models.Rule) {
		r.Conditions = append(r.Conditions, models.Condition{
			Field:    field,
			Operator: operator,
			Value:    value,
		})
	}
}

func WithAction(actionType models.ActionType, params map[string]any) RuleOption {
	return func(r *models.Rule) {
		r.Actions = append(r.Actions, models.Action{
			Type:   actionType,
			Params: params,
		})
	}
}

// OpportunitySnapshot is a representative entity snapshot for condition tests.
func OpportunitySnapshot(stage string, score float64) map[string]any {
	return map[string]any{
		"title": "Sample opportunity",
		"stage": stage,
		"score": score,
		"tags":  []any{},
		"agency": map[string]any{
			"name": "Department of Energy",
		},
	}
}
