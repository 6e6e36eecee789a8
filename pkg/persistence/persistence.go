package persistence

import (
	"context"

	"github.com/bidflow/bidflow/pkg/models"
)

// RuleFilter narrows rule listings. Nil fields mean "any".
type RuleFilter struct {
	TriggerType *models.TriggerType
	Enabled     *bool
}

// ExecutionFilter narrows execution listings. Zero Limit falls back to the
// implementation default.
type ExecutionFilter struct {
	RuleID string
	Status models.ExecutionStatus
	Limit  int
}

// RuleRepository is the rule store. Writes replace the condition and action
// lists whole; there is no partial list editing.
type RuleRepository interface {
	// Create assigns an id and timestamps and stores the rule.
	Create(ctx context.Context, rule *models.Rule) (*models.Rule, error)

	// Update replaces the stored rule. Returns ErrRuleNotFound for unknown ids.
	Update(ctx context.Context, rule *models.Rule) (*models.Rule, error)

	// Delete removes a rule. Deleting an absent rule is not an error.
	Delete(ctx context.Context, id string) error

	// GetByID returns one rule or ErrRuleNotFound.
	GetByID(ctx context.Context, id string) (*models.Rule, error)

	// List returns rules matching the filter, ordered by priority ascending
	// then id ascending.
	List(ctx context.Context, filter RuleFilter) ([]*models.Rule, error)
}

// ExecutionRepository is the append-only execution log. Rows are never
// updated or deleted by the engine; retention is an external concern.
type ExecutionRepository interface {
	// Append stores one execution record.
	Append(ctx context.Context, execution *models.Execution) error

	// List returns executions matching the filter, newest first.
	List(ctx context.Context, filter ExecutionFilter) ([]*models.Execution, error)
}

// Persistence is the storage entry point shared by the API and the dispatcher.
type Persistence interface {
	RuleRepository() RuleRepository
	ExecutionRepository() ExecutionRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
