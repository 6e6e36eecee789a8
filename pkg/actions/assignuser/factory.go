// Package assignuser implements the assign_user action: set the responsible
// user on an entity through the platform.
package assignuser

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
	return "assign_user"
}

// Schema returns the JSON schema for the action params.
func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "User to assign to the entity",
			},
			"role": map[string]any{
				"type":        "string",
				"description": "Assignment role",
				"default":     "owner",
				"examples":    []string{"owner", "capture_manager", "reviewer"},
			},
		},
		"required":             []string{"user_id"},
		"additionalProperties": false,
	}
}

// Create validates and binds the params into a handler.
func (f *Factory) Create(params map[string]any) (protocol.ActionHandler, error) {
	userID, _ := params["user_id"].(string)
	if userID == "" {
		return nil, errors.New("assign_user requires a non-empty 'user_id' param")
	}

	role, _ := params["role"].(string)
	if role == "" {
		role = "owner"
	}

	return &Action{userID: userID, role: role, writer: f.writer}, nil
}
