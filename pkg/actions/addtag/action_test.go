package addtag

import (
	"context"
	"log/slog"
	"testing"

	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executionContext(snapshot map[string]any) models.ExecutionContext {
	return models.ExecutionContext{
		RuleID:      "rule-1",
		TriggerType: models.TriggerEntityCreated,
		Entity:      models.EntityRef{Type: "opportunity", ID: "opp-1"},
		Snapshot:    snapshot,
	}
}

func TestFactory_Create(t *testing.T) {
	factory := NewFactory(crm.NewMemory())

	tests := []struct {
		name    string
		params  map[string]any
		wantErr bool
	}{
		{name: "valid tag", params: map[string]any{"tag": "hot-lead"}},
		{name: "missing tag", params: map[string]any{}, wantErr: true},
		{name: "empty tag", params: map[string]any{"tag": ""}, wantErr: true},
		{name: "non-string tag", params: map[string]any{"tag": 42}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.Create(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAction_Execute_AddsTag(t *testing.T) {
	platform := crm.NewMemory()
	factory := NewFactory(platform)

	handler, err := factory.Create(map[string]any{"tag": "hot-lead"})
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), executionContext(map[string]any{
		"tags": []any{"existing"},
	}), slog.Default())

	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, platform.Tags, 1)
	assert.Equal(t, "hot-lead", platform.Tags[0].Tag)
}

func TestAction_Execute_ExistingTagIsNoOp(t *testing.T) {
	platform := crm.NewMemory()
	factory := NewFactory(platform)

	handler, err := factory.Create(map[string]any{"tag": "hot-lead"})
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), executionContext(map[string]any{
		"tags": []any{"hot-lead", "other"},
	}), slog.Default())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, platform.Tags, "no write should reach the platform")
}

func TestAction_Execute_StringSliceTags(t *testing.T) {
	platform := crm.NewMemory()
	factory := NewFactory(platform)

	handler, err := factory.Create(map[string]any{"tag": "hot-lead"})
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), executionContext(map[string]any{
		"tags": []string{"hot-lead"},
	}), slog.Default())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, platform.Tags)
}
