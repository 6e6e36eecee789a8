package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bidflow/bidflow/pkg/models"
	"github.com/bidflow/bidflow/pkg/persistence"
	"github.com/google/uuid"
)

// RuleRepository handles rule table operations.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRuleRepository(db *sql.DB, logger *slog.Logger) *RuleRepository {
	return &RuleRepository{db: db, logger: logger}
}

const ruleColumns = `
	id
  , name
  , description
  , trigger_type
  , priority
  , enabled
  , conditions
  , actions
  , created_at
  , updated_at
`

func (r *RuleRepository) Create(ctx context.Context, rule *models.Rule) (*models.Rule, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate rule ID: %w", err)
	}

	now := time.Now().UTC()
	rule.ID = id.String()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	conditionsJSON, actionsJSON, err := marshalLists(rule)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO rules (id, name, description, trigger_type, priority, enabled, conditions, actions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		rule.Description,
		rule.TriggerType,
		rule.Priority,
		rule.Enabled,
		conditionsJSON,
		actionsJSON,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return nil, persistence.NewRuleError("Create", rule.ID, err)
	}

	return rule, nil
}

func (r *RuleRepository) Update(ctx context.Context, rule *models.Rule) (*models.Rule, error) {
	rule.UpdatedAt = time.Now().UTC()

	conditionsJSON, actionsJSON, err := marshalLists(rule)
	if err != nil {
		return nil, err
	}

	// The whole rule is replaced, condition and action lists included.
	query := `
		UPDATE rules SET
			name = $2,
			description = $3,
			trigger_type = $4,
			priority = $5,
			enabled = $6,
			conditions = $7,
			actions = $8,
			updated_at = $9
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		rule.Description,
		rule.TriggerType,
		rule.Priority,
		rule.Enabled,
		conditionsJSON,
		actionsJSON,
		rule.UpdatedAt,
	)
	if err != nil {
		return nil, persistence.NewRuleError("Update", rule.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return nil, persistence.NewRuleError("Update", rule.ID, persistence.ErrRuleNotFound)
	}

	return r.GetByID(ctx, rule.ID)
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	// Idempotent: deleting an absent rule is not an error.
	_, err := r.db.ExecContext(ctx, "DELETE FROM rules WHERE id = $1", id)
	if err != nil {
		return persistence.NewRuleError("Delete", id, err)
	}

	return nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.Rule, error) {
	query := "SELECT " + ruleColumns + " FROM rules WHERE id = $1"

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRuleError("GetByID", id, persistence.ErrRuleNotFound)
		}

		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}

	return rule, nil
}

func (r *RuleRepository) List(ctx context.Context, filter persistence.RuleFilter) ([]*models.Rule, error) {
	query := "SELECT " + ruleColumns + " FROM rules WHERE 1=1"
	args := make([]any, 0, 2)

	if filter.TriggerType != nil {
		args = append(args, *filter.TriggerType)
		query += fmt.Sprintf(" AND trigger_type = $%d", len(args))
	}

	if filter.Enabled != nil {
		args = append(args, *filter.Enabled)
		query += fmt.Sprintf(" AND enabled = $%d", len(args))
	}

	query += " ORDER BY priority ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	rules := make([]*models.Rule, 0)

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rules = append(rules, rule)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*models.Rule, error) {
	var (
		rule           models.Rule
		conditionsJSON []byte
		actionsJSON    []byte
	)

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Description,
		&rule.TriggerType,
		&rule.Priority,
		&rule.Enabled,
		&conditionsJSON,
		&actionsJSON,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(conditionsJSON, &rule.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
	}

	err = json.Unmarshal(actionsJSON, &rule.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}

	return &rule, nil
}

func marshalLists(rule *models.Rule) ([]byte, []byte, error) {
	if rule.Conditions == nil {
		rule.Conditions = []models.Condition{}
	}

	if rule.Actions == nil {
		rule.Actions = []models.Action{}
	}

	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal conditions: %w", err)
	}

	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal actions: %w", err)
	}

	return conditionsJSON, actionsJSON, nil
}
