// Package movestage implements the move_stage action: advance an entity to a
// target pipeline stage through the platform.
package movestage

import (
	"errors"

	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/protocol"
)

// Factory builds move_stage handlers bound to the platform writer.
type Factory struct {
	writer crm.EntityWriter
}

func NewFactory(writer crm.EntityWriter) *Factory {
	return &Factory{writer: writer}
}

// ID returns the action type this factory serves.
func (*Factory) ID() string {
	return "move_stage"
}

// Schema returns the JSON schema for the action params.
func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"target_stage": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Pipeline stage to move the entity to",
				"examples":    []string{"qualified", "proposal", "submitted"},
			},
		},
		"required":             []string{"target_stage"},
		"additionalProperties": false,
	}
}

// Create validates and binds the params into a handler.
func (f *Factory) Create(params map[string]any) (protocol.ActionHandler, error) {
	targetStage, _ := params["target_stage"].(string)
	if targetStage == "" {
		return nil, errors.New("move_stage requires a non-empty 'target_stage' param")
	}

	return &Action{targetStage: targetStage, writer: f.writer}, nil
}
