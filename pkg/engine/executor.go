package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bidflow/bidflow/pkg/models"
	"github.com/bidflow/bidflow/pkg/registry"
)

// DefaultActionTimeout bounds one handler call against slow collaborators.
const DefaultActionTimeout = 30 * time.Second

// Executor runs a matched rule's action list in order and folds the per-action
// outcomes into one execution record. Handler failures stop the list; an
// unregistered action type is a configuration error that is recorded but does
// not stop the remaining actions.
type Executor struct {
	registry      *registry.Registry
	actionTimeout time.Duration
	logger        *slog.Logger
}

func NewExecutor(reg *registry.Registry, actionTimeout time.Duration, logger *slog.Logger) *Executor {
	if actionTimeout <= 0 {
		actionTimeout = DefaultActionTimeout
	}

	return &Executor{
		registry:      reg,
		actionTimeout: actionTimeout,
		logger:        logger.With("module", "executor"),
	}
}

// Run executes one rule against one trigger event and returns the execution
// record to append to the log. It never returns an error: every failure mode
// is captured in the record so one misbehaving handler cannot crash the
// dispatch loop.
func (e *Executor) Run(ctx context.Context, rule *models.Rule, executionCtx models.ExecutionContext) *models.Execution {
	execution := &models.Execution{
		RuleID:        rule.ID,
		RuleName:      rule.Name,
		Entity:        executionCtx.Entity,
		TriggerType:   executionCtx.TriggerType,
		ActionResults: make([]models.ActionOutcome, 0, len(rule.Actions)),
		TriggeredAt:   time.Now().UTC(),
	}

	succeeded := 0
	failed := 0

	for _, action := range rule.Actions {
		outcome := e.runAction(ctx, action, executionCtx)
		execution.ActionResults = append(execution.ActionResults, outcome)

		if outcome.Success {
			succeeded++

			continue
		}

		failed++

		if execution.Error == "" {
			execution.Error = outcome.Message
		}

		// Unregistered action types are configuration errors: report and move
		// on. Any other failure is fatal to the rest of the list.
		if !e.registry.IsRegistered(string(action.Type)) {
			continue
		}

		break
	}

	execution.ActionsCompleted = succeeded
	execution.Status = foldStatus(succeeded, failed)

	return execution
}

func (e *Executor) runAction(ctx context.Context, action models.Action, executionCtx models.ExecutionContext) models.ActionOutcome {
	started := time.Now()

	result := e.executeWithTimeout(ctx, action, executionCtx)

	outcome := models.ActionOutcome{
		Type:       action.Type,
		Success:    result.Success,
		Message:    result.Message,
		Retryable:  result.Retryable,
		DurationMs: time.Since(started).Milliseconds(),
	}

	if outcome.Success {
		e.logger.InfoContext(ctx, "Action completed",
			"action_type", action.Type,
			"rule_id", executionCtx.RuleID,
			"entity", executionCtx.Entity.String())
	} else {
		e.logger.WarnContext(ctx, "Action failed",
			"action_type", action.Type,
			"rule_id", executionCtx.RuleID,
			"entity", executionCtx.Entity.String(),
			"retryable", outcome.Retryable,
			"message", outcome.Message)
	}

	return outcome
}

// executeWithTimeout resolves and runs one handler under the per-action
// deadline, converting errors, timeouts and panics into ActionResults.
func (e *Executor) executeWithTimeout(ctx context.Context, action models.Action, executionCtx models.ExecutionContext) (result models.ActionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = models.ActionResult{
				Success: false,
				Message: fmt.Sprintf("action %s panicked: %v", action.Type, r),
			}
		}
	}()

	handler, err := e.registry.CreateAction(string(action.Type), action.Params)
	if err != nil {
		return models.ActionResult{
			Success: false,
			Message: err.Error(),
		}
	}

	actionCtx, cancel := context.WithTimeout(ctx, e.actionTimeout)
	defer cancel()

	result, err = handler.Execute(actionCtx, executionCtx, e.logger)
	if err != nil {
		retryable := result.Retryable ||
			errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(actionCtx.Err(), context.DeadlineExceeded)

		message := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(actionCtx.Err(), context.DeadlineExceeded) {
			message = fmt.Sprintf("action %s timed out after %s", action.Type, e.actionTimeout)
		}

		return models.ActionResult{
			Success:   false,
			Message:   message,
			Retryable: retryable,
		}
	}

	return result
}

// foldStatus maps per-action counts onto the execution state machine: all
// success, partial, or failed.
func foldStatus(succeeded, failed int) models.ExecutionStatus {
	switch {
	case failed == 0:
		return models.ExecutionSuccess
	case succeeded > 0:
		return models.ExecutionPartial
	default:
		return models.ExecutionFailed
	}
}
