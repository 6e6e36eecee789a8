package movestage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/models"
)

type Action struct {
	targetStage string
	writer      crm.EntityWriter
}

// Execute moves the entity to the target stage. Already being in the target
// stage is a no-op success, so re-firing the rule emits no duplicate
// stage-change side effect.
func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (models.ActionResult, error) {
	logger = logger.With("action_type", "move_stage", "target_stage", a.targetStage)

	if current, ok := executionCtx.Snapshot["stage"].(string); ok && current == a.targetStage {
		logger.InfoContext(ctx, "Entity already in target stage, skipping")

		return models.ActionResult{
			Success: true,
			Message: fmt.Sprintf("entity already in stage %q", a.targetStage),
		}, nil
	}

	err := a.writer.MoveStage(ctx, executionCtx.Entity, a.targetStage)
	if err != nil {
		return models.ActionResult{
			Success:   false,
			Message:   fmt.Sprintf("failed to move stage: %v", err),
			Retryable: true,
		}, err
	}

	return models.ActionResult{
		Success: true,
		Message: fmt.Sprintf("moved entity to stage %q", a.targetStage),
	}, nil
}
