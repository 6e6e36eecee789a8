package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/bidflow/bidflow/pkg/models"
	"github.com/bidflow/bidflow/pkg/persistence"
	"github.com/bidflow/bidflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *file.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

func sampleRule() *models.Rule {
	return &models.Rule{
		Name:        "Qualify high scores",
		TriggerType: models.TriggerScoreThreshold,
		Priority:    1,
		Enabled:     true,
		Conditions: []models.Condition{
			{Field: "score", Operator: models.OperatorGt, Value: 80},
		},
		Actions: []models.Action{
			{Type: models.ActionMoveStage, Params: map[string]any{"target_stage": "qualified"}},
		},
	}
}

func TestRuleRepository_CreateAndGet(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	created, err := store.RuleRepository().Create(ctx, sampleRule())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	fetched, err := store.RuleRepository().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, fetched.Name)
	assert.Equal(t, models.TriggerScoreThreshold, fetched.TriggerType)
	assert.Len(t, fetched.Conditions, 1)
	assert.Len(t, fetched.Actions, 1)
}

func TestRuleRepository_GetByID_NotFound(t *testing.T) {
	store := newStore(t)

	_, err := store.RuleRepository().GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsRuleNotFound(err))
}

func TestRuleRepository_Update(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	created, err := store.RuleRepository().Create(ctx, sampleRule())
	require.NoError(t, err)

	created.Name = "Qualify very high scores"
	created.Conditions = []models.Condition{
		{Field: "score", Operator: models.OperatorGt, Value: 90},
	}

	updated, err := store.RuleRepository().Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Qualify very high scores", updated.Name)

	fetched, err := store.RuleRepository().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(90), fetched.Conditions[0].Value)
	assert.Equal(t, created.CreatedAt.Unix(), fetched.CreatedAt.Unix())
}

func TestRuleRepository_Update_NotFound(t *testing.T) {
	store := newStore(t)

	rule := sampleRule()
	rule.ID = "missing"

	_, err := store.RuleRepository().Update(context.Background(), rule)
	assert.True(t, persistence.IsRuleNotFound(err))
}

func TestRuleRepository_Delete_Idempotent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	created, err := store.RuleRepository().Create(ctx, sampleRule())
	require.NoError(t, err)

	require.NoError(t, store.RuleRepository().Delete(ctx, created.ID))
	// Second delete of the same id is not an error.
	require.NoError(t, store.RuleRepository().Delete(ctx, created.ID))

	_, err = store.RuleRepository().GetByID(ctx, created.ID)
	assert.True(t, persistence.IsRuleNotFound(err))
}

func TestRuleRepository_List_FilterAndOrder(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	first := sampleRule()
	first.Priority = 2

	second := sampleRule()
	second.Name = "Notify owner on stage change"
	second.TriggerType = models.TriggerStageChanged
	second.Priority = 1

	third := sampleRule()
	third.Name = "Disabled rule"
	third.Priority = 1
	third.Enabled = false

	for _, rule := range []*models.Rule{first, second, third} {
		_, err := store.RuleRepository().Create(ctx, rule)
		require.NoError(t, err)
	}

	all, err := store.RuleRepository().List(ctx, persistence.RuleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Priority ascending, ties by id ascending.
	assert.Equal(t, 1, all[0].Priority)
	assert.Equal(t, 1, all[1].Priority)
	assert.Equal(t, 2, all[2].Priority)
	assert.Less(t, all[0].ID, all[1].ID)

	trigger := models.TriggerScoreThreshold
	enabled := true

	filtered, err := store.RuleRepository().List(ctx, persistence.RuleFilter{TriggerType: &trigger, Enabled: &enabled})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, first.ID, filtered[0].ID)
}

func TestExecutionRepository_AppendAndList(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Minute)

	for i := range 3 {
		execution := &models.Execution{
			RuleID:      "rule-1",
			RuleName:    "Qualify high scores",
			Entity:      models.EntityRef{Type: "opportunity", ID: "opp-1"},
			TriggerType: models.TriggerScoreThreshold,
			Status:      models.ExecutionSuccess,
			TriggeredAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.ExecutionRepository().Append(ctx, execution))
		assert.NotEmpty(t, execution.ID)
	}

	executions, err := store.ExecutionRepository().List(ctx, persistence.ExecutionFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, executions, 2)
	// Newest first.
	assert.True(t, executions[0].TriggeredAt.After(executions[1].TriggeredAt))
}

func TestExecutionRepository_ListFilters(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	success := &models.Execution{
		RuleID: "rule-1",
		Status: models.ExecutionSuccess,
		Entity: models.EntityRef{Type: "opportunity", ID: "opp-1"},
	}
	failed := &models.Execution{
		RuleID: "rule-2",
		Status: models.ExecutionFailed,
		Error:  "notification timed out",
		Entity: models.EntityRef{Type: "opportunity", ID: "opp-2"},
	}
	require.NoError(t, store.ExecutionRepository().Append(ctx, success))
	require.NoError(t, store.ExecutionRepository().Append(ctx, failed))

	byRule, err := store.ExecutionRepository().List(ctx, persistence.ExecutionFilter{RuleID: "rule-1"})
	require.NoError(t, err)
	require.Len(t, byRule, 1)
	assert.Equal(t, models.ExecutionSuccess, byRule[0].Status)

	byStatus, err := store.ExecutionRepository().List(ctx, persistence.ExecutionFilter{Status: models.ExecutionFailed})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "rule-2", byStatus[0].RuleID)
}

func TestExecutions_SurviveRuleDeletion(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	created, err := store.RuleRepository().Create(ctx, sampleRule())
	require.NoError(t, err)

	execution := &models.Execution{
		RuleID: created.ID,
		Status: models.ExecutionSuccess,
		Entity: models.EntityRef{Type: "opportunity", ID: "opp-1"},
	}
	require.NoError(t, store.ExecutionRepository().Append(ctx, execution))

	require.NoError(t, store.RuleRepository().Delete(ctx, created.ID))

	executions, err := store.ExecutionRepository().List(ctx, persistence.ExecutionFilter{})
	require.NoError(t, err)
	require.Len(t, executions, 1)
	// The row keeps its now-dangling rule reference.
	assert.Equal(t, created.ID, executions[0].RuleID)
}

func TestPersistence_HealthCheck(t *testing.T) {
	store := newStore(t)
	assert.NoError(t, store.HealthCheck(context.Background()))

	missing := file.NewPersistence("/nonexistent/bidflow-test")
	assert.Error(t, missing.HealthCheck(context.Background()))
}
