// Package protocol defines the contracts between the engine and pluggable
// action handlers.
package protocol

import (
	"context"
	"log/slog"

	"github.com/bidflow/bidflow/pkg/models"
)

// ActionHandler performs one side effect when a rule fires. Handlers must be
// idempotent where the action allows it (re-adding a tag, moving to the
// current stage) and must honor ctx cancellation on external calls.
type ActionHandler interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (models.ActionResult, error)
}

// HandlerFactory builds handlers for one action type. Create validates and
// binds params; the returned handler is reused across executions. Schema is a
// JSON schema the rule service checks params against at save time.
type HandlerFactory interface {
	ID() string
	Schema() map[string]any
	Create(params map[string]any) (ActionHandler, error)
}
