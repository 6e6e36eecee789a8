// Package notify implements the send_notification action: deliver a templated
// message through the platform's notification transport.
package notify

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/protocol"
)

var channels = []string{"email", "slack", "webhook"}

type Factory struct {
	notifier crm.Notifier
}

func NewFactory(notifier crm.Notifier) *Factory {
	return &Factory{notifier: notifier}
}

// ID returns the action type this factory serves.
func (*Factory) ID() string {
	return "send_notification"
}

// Schema returns the JSON schema for the action params.
func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"channel": map[string]any{
				"type":        "string",
				"description": "Delivery channel",
				"default":     "email",
				"enum":        channels,
			},
			"recipient": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Channel-specific recipient (address, handle or URL)",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Message subject. Supports templating against the execution context.",
				"examples":    []string{"{{.rule.name}} fired for {{.snapshot.title}}"},
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Message body. Supports templating against the execution context.",
				"examples":    []string{"Opportunity {{.snapshot.title}} reached score {{.snapshot.score}}"},
			},
		},
		"required":             []string{"recipient"},
		"additionalProperties": false,
	}
}

// Create validates and binds the params into a handler.
func (f *Factory) Create(params map[string]any) (protocol.ActionHandler, error) {
	recipient, _ := params["recipient"].(string)
	if recipient == "" {
		return nil, errors.New("send_notification requires a non-empty 'recipient' param")
	}

	channel, _ := params["channel"].(string)
	if channel == "" {
		channel = "email"
	}

	if !slices.Contains(channels, channel) {
		return nil, fmt.Errorf("send_notification channel %q is not supported", channel)
	}

	subject, _ := params["subject"].(string)
	body, _ := params["body"].(string)

	return &Action{
		channel:   channel,
		recipient: recipient,
		subject:   subject,
		body:      body,
		notifier:  f.notifier,
	}, nil
}
