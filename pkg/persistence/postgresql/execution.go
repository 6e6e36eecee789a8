package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bidflow/bidflow/pkg/models"
	"github.com/bidflow/bidflow/pkg/persistence"
	"github.com/google/uuid"
)

const defaultExecutionListLimit = 50

// ExecutionRepository handles the append-only executions table.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) Append(ctx context.Context, execution *models.Execution) error {
	if execution.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate execution ID: %w", err)
		}

		execution.ID = id.String()
	}

	if execution.TriggeredAt.IsZero() {
		execution.TriggeredAt = time.Now().UTC()
	}

	if execution.ActionResults == nil {
		execution.ActionResults = []models.ActionOutcome{}
	}

	resultsJSON, err := json.Marshal(execution.ActionResults)
	if err != nil {
		return fmt.Errorf("failed to marshal action results: %w", err)
	}

	query := `
		INSERT INTO executions (id, rule_id, rule_name, entity_type, entity_id, trigger_type, status, actions_completed, error, action_results, triggered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.RuleID,
		execution.RuleName,
		execution.Entity.Type,
		execution.Entity.ID,
		execution.TriggerType,
		execution.Status,
		execution.ActionsCompleted,
		execution.Error,
		resultsJSON,
		execution.TriggeredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution %s: %w", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) List(ctx context.Context, filter persistence.ExecutionFilter) ([]*models.Execution, error) {
	query := `
		SELECT
			id
		  , rule_id
		  , rule_name
		  , entity_type
		  , entity_id
		  , trigger_type
		  , status
		  , actions_completed
		  , error
		  , action_results
		  , triggered_at
		FROM executions
		WHERE 1=1
	`

	args := make([]any, 0, 3)

	if filter.RuleID != "" {
		args = append(args, filter.RuleID)
		query += fmt.Sprintf(" AND rule_id = $%d", len(args))
	}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultExecutionListLimit
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY triggered_at DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		var (
			execution   models.Execution
			resultsJSON []byte
		)

		err := rows.Scan(
			&execution.ID,
			&execution.RuleID,
			&execution.RuleName,
			&execution.Entity.Type,
			&execution.Entity.ID,
			&execution.TriggerType,
			&execution.Status,
			&execution.ActionsCompleted,
			&execution.Error,
			&resultsJSON,
			&execution.TriggeredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		err = json.Unmarshal(resultsJSON, &execution.ActionResults)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal action results: %w", err)
		}

		executions = append(executions, &execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}
