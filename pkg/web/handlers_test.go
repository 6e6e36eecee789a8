package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bidflow/bidflow/pkg/actions/addtag"
	"github.com/bidflow/bidflow/pkg/actions/assignuser"
	"github.com/bidflow/bidflow/pkg/actions/movestage"
	"github.com/bidflow/bidflow/pkg/actions/notify"
	"github.com/bidflow/bidflow/pkg/actions/teaming"
	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/engine"
	"github.com/bidflow/bidflow/pkg/models"
	"github.com/bidflow/bidflow/pkg/persistence/file"
	"github.com/bidflow/bidflow/pkg/registry"
	"github.com/bidflow/bidflow/pkg/services"
	"github.com/bidflow/bidflow/pkg/testutil"
	"github.com/bidflow/bidflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app         *fiber.App
	ruleService *services.Rule
	platform    *crm.Memory
	store       *file.Persistence
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	platform := crm.NewMemory()

	registryInstance := registry.NewRegistry(slog.Default())
	registryInstance.RegisterAction(movestage.NewFactory(platform))
	registryInstance.RegisterAction(assignuser.NewFactory(platform))
	registryInstance.RegisterAction(addtag.NewFactory(platform))
	registryInstance.RegisterAction(notify.NewFactory(platform))
	registryInstance.RegisterAction(teaming.NewFactory(platform))

	matcher := engine.NewMatcher(store.RuleRepository(), 0, slog.Default())
	ruleService := services.NewRule(store, registryInstance, matcher, platform)
	executionService := services.NewExecution(store)

	handlers := web.NewAPIHandlers(ruleService, executionService,
		validator.New(validator.WithRequiredStructEnabled()), registryInstance)

	app := fiber.New()

	r := app.Group("/rules")
	r.Get("/", handlers.GetRules)
	r.Post("/", handlers.CreateRule)
	r.Get("/:id", handlers.GetRule)
	r.Patch("/:id", handlers.UpdateRule)
	r.Delete("/:id", handlers.DeleteRule)
	r.Post("/:id/test", handlers.TestRule)

	app.Get("/executions", handlers.GetExecutions)
	app.Get("/health", handlers.HealthCheck)

	return &testEnv{
		app:         app,
		ruleService: ruleService,
		platform:    platform,
		store:       store,
	}
}

func createTestRule(t *testing.T, env *testEnv) *models.Rule {
	t.Helper()

	rule := testutil.NewRule("qualify high scores", models.TriggerScoreThreshold,
		testutil.WithCondition("score", models.OperatorGt, 80),
		testutil.WithAction(models.ActionMoveStage, map[string]any{"target_stage": "qualified"}))

	created, err := env.ruleService.Create(context.Background(), rule)
	require.NoError(t, err)

	return created
}

func TestAPIHandlers_CreateRule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		validateResult func(t *testing.T, body []byte)
	}{
		{
			name: "successful creation",
			requestBody: web.CreateRuleRequest{
				Name:        "Qualify high scores",
				Description: "Move high scoring opportunities forward",
				TriggerType: "score_threshold",
				Priority:    5,
				Conditions: []web.ConditionRequest{
					{Field: "score", Operator: "gt", Value: 80},
				},
				Actions: []web.ActionRequest{
					{Type: "move_stage", Params: map[string]any{"target_stage": "qualified"}},
				},
			},
			expectedStatus: http.StatusCreated,
			validateResult: func(t *testing.T, body []byte) {
				t.Helper()

				var rule models.Rule
				require.NoError(t, json.Unmarshal(body, &rule))
				assert.Equal(t, "Qualify high scores", rule.Name)
				assert.NotEmpty(t, rule.ID)
				assert.False(t, rule.Enabled, "new rules start disabled")
			},
		},
		{
			name: "missing name",
			requestBody: web.CreateRuleRequest{
				TriggerType: "score_threshold",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown trigger type",
			requestBody: web.CreateRuleRequest{
				Name:        "Broken rule",
				TriggerType: "entity_deleted",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown operator",
			requestBody: web.CreateRuleRequest{
				Name:        "Broken rule",
				TriggerType: "entity_created",
				Conditions: []web.ConditionRequest{
					{Field: "score", Operator: "matches", Value: 80},
				},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "action params fail schema",
			requestBody: web.CreateRuleRequest{
				Name:        "Broken rule",
				TriggerType: "entity_created",
				Actions: []web.ActionRequest{
					{Type: "move_stage", Params: map[string]any{}},
				},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "{not json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := setupTestApp(t)

			var body []byte
			switch typed := tt.requestBody.(type) {
			case string:
				body = []byte(typed)
			default:
				var err error
				body, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/rules", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := env.app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.validateResult != nil {
				respBody, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				tt.validateResult(t, respBody)
			}
		})
	}
}

func TestAPIHandlers_GetRules(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	createTestRule(t, env)

	disabled := testutil.NewRule("disabled rule", models.TriggerEntityCreated, testutil.WithEnabled(false))
	_, err := env.ruleService.Create(context.Background(), disabled)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/rules/", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result services.ListRulesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 2, result.TotalCount)

	req = httptest.NewRequest(http.MethodGet, "/rules/?enabled=true", nil)
	resp, err = env.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 1, result.TotalCount)
}

func TestAPIHandlers_GetRule(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	created := createTestRule(t, env)

	req := httptest.NewRequest(http.MethodGet, "/rules/"+created.ID, nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/rules/does-not-exist", nil)
	resp, err = env.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_UpdateRule(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	created := createTestRule(t, env)

	newName := "Qualify very high scores"
	enabled := true
	body, err := json.Marshal(web.UpdateRuleRequest{
		Name:    &newName,
		Enabled: &enabled,
		Actions: &[]web.ActionRequest{
			{Type: "add_tag", Params: map[string]any{"tag": "hot"}},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPatch, "/rules/"+created.ID, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Rule
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.Equal(t, newName, updated.Name)
	assert.True(t, updated.Enabled)
	require.Len(t, updated.Actions, 1)
	assert.Equal(t, models.ActionAddTag, updated.Actions[0].Type)
	assert.Len(t, updated.Conditions, 1, "unspecified condition list is untouched")
}

func TestAPIHandlers_UpdateRule_NotFound(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)

	newName := "New name"
	body, err := json.Marshal(web.UpdateRuleRequest{Name: &newName})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPatch, "/rules/does-not-exist", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_DeleteRule(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	created := createTestRule(t, env)

	req := httptest.NewRequest(http.MethodDelete, "/rules/"+created.ID, nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Repeat delete stays 204.
	req = httptest.NewRequest(http.MethodDelete, "/rules/"+created.ID, nil)
	resp, err = env.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAPIHandlers_TestRule(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	created := createTestRule(t, env)

	body, err := json.Marshal(services.TestRuleRequest{
		Entities: []map[string]any{
			testutil.OpportunitySnapshot("intake", 85),
			testutil.OpportunitySnapshot("intake", 60),
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/rules/"+created.ID+"/test", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result services.TestRuleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 1, result.WouldMatch)
	assert.Equal(t, 2, result.SampleSize)

	assert.Empty(t, env.platform.StageMoves, "dry-runs must not reach the platform")
}

func TestAPIHandlers_TestRule_SamplesFromPlatform(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	created := createTestRule(t, env)

	env.platform.PutSnapshot(models.EntityRef{Type: "opportunity", ID: "opp-1"}, testutil.OpportunitySnapshot("intake", 90))
	env.platform.PutSnapshot(models.EntityRef{Type: "opportunity", ID: "opp-2"}, testutil.OpportunitySnapshot("intake", 40))

	req := httptest.NewRequest(http.MethodPost, "/rules/"+created.ID+"/test", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result services.TestRuleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 1, result.WouldMatch)
	assert.Equal(t, 2, result.SampleSize)
}

func TestAPIHandlers_TestRule_NotFound(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/rules/does-not-exist/test", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_GetExecutions(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)

	repo := env.store.ExecutionRepository()
	require.NoError(t, repo.Append(context.Background(), &models.Execution{
		RuleID: "rule-a",
		Entity: models.EntityRef{Type: "opportunity", ID: "opp-1"},
		Status: models.ExecutionSuccess,
	}))
	require.NoError(t, repo.Append(context.Background(), &models.Execution{
		RuleID: "rule-b",
		Entity: models.EntityRef{Type: "opportunity", ID: "opp-2"},
		Status: models.ExecutionFailed,
		Error:  "boom",
	}))

	req := httptest.NewRequest(http.MethodGet, "/executions", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result services.ListExecutionsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 2, result.TotalCount)

	req = httptest.NewRequest(http.MethodGet, "/executions?status=failed", nil)
	resp, err = env.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Equal(t, 1, result.TotalCount)
	assert.Equal(t, "boom", result.Executions[0].Error)

	req = httptest.NewRequest(http.MethodGet, "/executions?status=pending", nil)
	resp, err = env.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
