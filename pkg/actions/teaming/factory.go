// Package teaming implements the evaluate_teaming action: request an
// asynchronous teaming-fit evaluation from the platform.
package teaming

import (
	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/protocol"
)

const defaultModel = "standard"

type Factory struct {
	evaluator crm.TeamingEvaluator
}

func NewFactory(evaluator crm.TeamingEvaluator) *Factory {
	return &Factory{evaluator: evaluator}
}

// ID returns the action type this factory serves.
func (*Factory) ID() string {
	return "evaluate_teaming"
}

// Schema returns the JSON schema for the action params.
func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"model": map[string]any{
				"type":        "string",
				"description": "Evaluation model the platform should run",
				"default":     defaultModel,
				"examples":    []string{"standard", "capability-gap", "past-performance"},
			},
			"notify_owner": map[string]any{
				"type":        "boolean",
				"description": "Notify the entity owner when the evaluation completes",
				"default":     false,
			},
		},
		"additionalProperties": false,
	}
}

// Create binds the params into a handler. All params are optional.
func (f *Factory) Create(params map[string]any) (protocol.ActionHandler, error) {
	model, _ := params["model"].(string)
	if model == "" {
		model = defaultModel
	}

	notifyOwner, _ := params["notify_owner"].(bool)

	return &Action{model: model, notifyOwner: notifyOwner, evaluator: f.evaluator}, nil
}
