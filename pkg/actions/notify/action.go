package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/models"
	"github.com/bidflow/bidflow/pkg/template"
)

type Action struct {
	channel   string
	recipient string
	subject   string
	body      string
	notifier  crm.Notifier
}

// Execute renders subject and body against the execution context and hands
// the message to the delivery transport. Template failures are permanent;
// delivery failures are retryable.
func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (models.ActionResult, error) {
	logger = logger.With("action_type", "send_notification", "channel", a.channel)

	subject, err := template.RenderWithContext(a.subject, executionCtx)
	if err != nil {
		return models.ActionResult{
			Success: false,
			Message: fmt.Sprintf("failed to render subject: %v", err),
		}, err
	}

	body, err := template.RenderWithContext(a.body, executionCtx)
	if err != nil {
		return models.ActionResult{
			Success: false,
			Message: fmt.Sprintf("failed to render body: %v", err),
		}, err
	}

	notification := crm.Notification{
		Channel:   a.channel,
		Recipient: a.recipient,
		Subject:   subject,
		Body:      body,
	}

	err = a.notifier.Send(ctx, notification)
	if err != nil {
		return models.ActionResult{
			Success:   false,
			Message:   fmt.Sprintf("failed to deliver notification: %v", err),
			Retryable: true,
		}, err
	}

	logger.InfoContext(ctx, "Notification delivered", "recipient", a.recipient)

	return models.ActionResult{
		Success: true,
		Message: fmt.Sprintf("notification sent to %s via %s", a.recipient, a.channel),
	}, nil
}
