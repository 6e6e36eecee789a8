package assignuser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bidflow/bidflow/pkg/conditions"
	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/models"
)

type Action struct {
	userID string
	role   string
	writer crm.EntityWriter
}

// Execute assigns the user. An entity already assigned to the same user is a
// no-op success.
func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (models.ActionResult, error) {
	logger = logger.With("action_type", "assign_user", "user_id", a.userID)

	if a.alreadyAssigned(executionCtx.Snapshot) {
		logger.InfoContext(ctx, "Entity already assigned to user, skipping")

		return models.ActionResult{
			Success: true,
			Message: fmt.Sprintf("entity already assigned to user %q", a.userID),
		}, nil
	}

	err := a.writer.AssignUser(ctx, executionCtx.Entity, a.userID, a.role)
	if err != nil {
		return models.ActionResult{
			Success:   false,
			Message:   fmt.Sprintf("failed to assign user: %v", err),
			Retryable: true,
		}, err
	}

	return models.ActionResult{
		Success: true,
		Message: fmt.Sprintf("assigned user %q as %s", a.userID, a.role),
	}, nil
}

// alreadyAssigned checks both snapshot shapes the platform emits: a nested
// assignee object and a flat assignee_id field.
func (a *Action) alreadyAssigned(snapshot map[string]any) bool {
	if current, ok := conditions.Lookup(snapshot, "assignee.id"); ok {
		if id, ok := current.(string); ok && id == a.userID {
			return true
		}
	}

	if current, ok := snapshot["assignee_id"].(string); ok && current == a.userID {
		return true
	}

	return false
}
