package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/models"
	"github.com/bidflow/bidflow/pkg/persistence"
	"github.com/bidflow/bidflow/pkg/registry"
	"github.com/xeipuuv/gojsonschema"
)

// ErrRuleNotFound is returned when a rule is not found.
var ErrRuleNotFound = persistence.ErrRuleNotFound

// RuleTester is the matcher surface the service needs: dry-run evaluation and
// cache invalidation after writes.
type RuleTester interface {
	Test(ctx context.Context, ruleID string, samples []map[string]any) (int, error)
	Invalidate()
}

// Rule is the rule service: strict validation on top of the rule store.
type Rule struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	matcher     RuleTester
	snapshots   crm.SnapshotProvider
}

// NewRule creates a rule service. snapshots resolves sample entities for
// dry-runs that name an entity type instead of inlining samples.
func NewRule(persistence persistence.Persistence, registry *registry.Registry, matcher RuleTester, snapshots crm.SnapshotProvider) *Rule {
	return &Rule{
		persistence: persistence,
		registry:    registry,
		matcher:     matcher,
		snapshots:   snapshots,
	}
}

// HealthCheck checks the health of the persistence layer.
func (r *Rule) HealthCheck(ctx context.Context) (string, bool) {
	if r.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := r.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Create validates and stores a new rule.
func (r *Rule) Create(ctx context.Context, rule *models.Rule) (*models.Rule, error) {
	err := r.validate(rule)
	if err != nil {
		return nil, err
	}

	created, err := r.persistence.RuleRepository().Create(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}

	r.invalidate()

	return created, nil
}

// Update validates and replaces a stored rule whole, condition and action
// lists included.
func (r *Rule) Update(ctx context.Context, ruleID string, rule *models.Rule) (*models.Rule, error) {
	err := r.validate(rule)
	if err != nil {
		return nil, err
	}

	rule.ID = ruleID

	updated, err := r.persistence.RuleRepository().Update(ctx, rule)
	if err != nil {
		if persistence.IsRuleNotFound(err) {
			return nil, ErrRuleNotFound
		}

		return nil, fmt.Errorf("failed to update rule: %w", err)
	}

	r.invalidate()

	return updated, nil
}

// Delete removes a rule. Deleting an absent rule is not an error; historical
// executions referencing the rule are untouched.
func (r *Rule) Delete(ctx context.Context, ruleID string) error {
	err := r.persistence.RuleRepository().Delete(ctx, ruleID)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	r.invalidate()

	return nil
}

// FetchByID retrieves a rule by its ID.
func (r *Rule) FetchByID(ctx context.Context, ruleID string) (*models.Rule, error) {
	rule, err := r.persistence.RuleRepository().GetByID(ctx, ruleID)
	if err != nil {
		if persistence.IsRuleNotFound(err) {
			return nil, ErrRuleNotFound
		}

		return nil, err
	}

	return rule, nil
}

// ListRulesResponse contains the result of listing rules.
type ListRulesResponse struct {
	Rules      []*models.Rule `json:"rules"`
	TotalCount int            `json:"total_count"`
}

// List retrieves rules filtered by trigger type and enabled flag.
func (r *Rule) List(ctx context.Context, filter persistence.RuleFilter) (*ListRulesResponse, error) {
	rules, err := r.persistence.RuleRepository().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	return &ListRulesResponse{Rules: rules, TotalCount: len(rules)}, nil
}

func (r *Rule) invalidate() {
	if r.matcher != nil {
		r.matcher.Invalidate()
	}
}

// validate rejects malformed rules outright so the dispatcher only ever sees
// well-formed definitions. Condition evaluation still fails closed at
// dispatch time, but that path is for type mismatches against live
// snapshots, not for rules that were broken on arrival.
func (r *Rule) validate(rule *models.Rule) error {
	if strings.TrimSpace(rule.Name) == "" {
		return NewValidationError("validateRule", "RULE_NAME_REQUIRED",
			"rule name is required", ErrRuleNameRequired)
	}

	if !rule.TriggerType.Valid() {
		return NewValidationError("validateRule", "INVALID_TRIGGER_TYPE",
			fmt.Sprintf("unknown trigger type %q", rule.TriggerType), ErrInvalidTriggerType)
	}

	for i, condition := range rule.Conditions {
		err := r.validateCondition(i, condition)
		if err != nil {
			return err
		}
	}

	for i, action := range rule.Actions {
		err := r.validateAction(i, action)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *Rule) validateCondition(index int, condition models.Condition) error {
	if strings.TrimSpace(condition.Field) == "" {
		return NewValidationError("validateRule", "CONDITION_FIELD_REQUIRED",
			fmt.Sprintf("condition %d has an empty field", index), ErrConditionFieldRequired)
	}

	if !condition.Operator.Valid() {
		return NewValidationError("validateRule", "INVALID_OPERATOR",
			fmt.Sprintf("condition %d has unknown operator %q", index, condition.Operator), ErrInvalidOperator)
	}

	if condition.Operator == models.OperatorInList {
		if _, ok := normalizeList(condition.Value); !ok {
			return NewValidationError("validateRule", "INVALID_CONDITION_VALUE",
				fmt.Sprintf("condition %d uses in_list but its value is not a list", index), ErrInvalidConditionValue)
		}
	}

	return nil
}

func (r *Rule) validateAction(index int, action models.Action) error {
	schema, ok := r.registry.ActionSchema(string(action.Type))
	if !ok {
		return NewValidationError("validateRule", "UNKNOWN_ACTION_TYPE",
			fmt.Sprintf("action %d has unknown type %q", index, action.Type), ErrUnknownActionType)
	}

	params := action.Params
	if params == nil {
		params = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(params),
	)
	if err != nil {
		return fmt.Errorf("failed to validate action %d params: %w", index, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return NewValidationError("validateRule", "INVALID_ACTION_PARAMS",
			fmt.Sprintf("action %d (%s) params invalid: %s", index, action.Type, strings.Join(details, "; ")),
			ErrInvalidActionParams)
	}

	return nil
}

func normalizeList(value any) ([]any, bool) {
	switch typed := value.(type) {
	case []any:
		return typed, true
	case []string:
		list := make([]any, len(typed))
		for i, s := range typed {
			list[i] = s
		}

		return list, true
	default:
		return nil, false
	}
}
