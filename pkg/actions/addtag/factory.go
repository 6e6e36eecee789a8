// Package addtag implements the add_tag action: tag an entity through the
// platform as a set union.
package addtag

import (
	"errors"

	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/protocol"
)

type Factory struct {
	writer crm.EntityWriter
}

func NewFactory(writer crm.EntityWriter) *Factory {
	return &Factory{writer: writer}
}

// ID returns the action type this factory serves.
func (*Factory) ID() string {
	return "add_tag"
}

// Schema returns the JSON schema for the action params.
func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tag": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Tag to add to the entity",
				"examples":    []string{"hot-lead", "needs-review"},
			},
		},
		"required":             []string{"tag"},
		"additionalProperties": false,
	}
}

// Create validates and binds the params into a handler.
func (f *Factory) Create(params map[string]any) (protocol.ActionHandler, error) {
	tag, _ := params["tag"].(string)
	if tag == "" {
		return nil, errors.New("add_tag requires a non-empty 'tag' param")
	}

	return &Action{tag: tag, writer: f.writer}, nil
}
