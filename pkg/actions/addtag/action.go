package addtag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/models"
)

type Action struct {
	tag    string
	writer crm.EntityWriter
}

// Execute adds the tag as a set union: a tag already present on the entity is
// a no-op success and leaves the tag set unchanged.
func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (models.ActionResult, error) {
	logger = logger.With("action_type", "add_tag", "tag", a.tag)

	if hasTag(executionCtx.Snapshot, a.tag) {
		logger.InfoContext(ctx, "Tag already present, skipping")

		return models.ActionResult{
			Success: true,
			Message: fmt.Sprintf("tag %q already present", a.tag),
		}, nil
	}

	err := a.writer.AddTag(ctx, executionCtx.Entity, a.tag)
	if err != nil {
		return models.ActionResult{
			Success:   false,
			Message:   fmt.Sprintf("failed to add tag: %v", err),
			Retryable: true,
		}, err
	}

	return models.ActionResult{
		Success: true,
		Message: fmt.Sprintf("added tag %q", a.tag),
	}, nil
}

// hasTag handles both list shapes JSON decoding produces for the snapshot's
// tags field.
func hasTag(snapshot map[string]any, tag string) bool {
	switch tags := snapshot["tags"].(type) {
	case []any:
		for _, existing := range tags {
			if s, ok := existing.(string); ok && s == tag {
				return true
			}
		}
	case []string:
		for _, existing := range tags {
			if existing == tag {
				return true
			}
		}
	}

	return false
}
