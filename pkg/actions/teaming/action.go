package teaming

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/models"
)

type Action struct {
	model       string
	notifyOwner bool
	evaluator   crm.TeamingEvaluator
}

// Execute requests the evaluation. The evaluation itself runs asynchronously
// on the platform; the result message carries the job id operators can follow.
func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (models.ActionResult, error) {
	logger = logger.With("action_type", "evaluate_teaming", "model", a.model)

	jobID, err := a.evaluator.RequestEvaluation(ctx, executionCtx.Entity, a.model, a.notifyOwner)
	if err != nil {
		return models.ActionResult{
			Success:   false,
			Message:   fmt.Sprintf("failed to request teaming evaluation: %v", err),
			Retryable: true,
		}, err
	}

	logger.InfoContext(ctx, "Teaming evaluation requested", "job_id", jobID)

	return models.ActionResult{
		Success: true,
		Message: fmt.Sprintf("teaming evaluation requested, job %s", jobID),
	}, nil
}
