package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bidflow/bidflow/pkg/models"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPClient talks to the platform API over its REST surface. Per-request
// deadlines come from the caller's context; Timeout only bounds requests
// whose context carries no deadline.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPClient(baseURL, token string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
		logger:  logger.With("module", "crm_client"),
	}
}

func (c *HTTPClient) GetSnapshot(ctx context.Context, entityType, entityID string) (map[string]any, error) {
	var snapshot map[string]any

	path := fmt.Sprintf("/api/%s/%s/snapshot", url.PathEscape(entityType), url.PathEscape(entityID))

	err := c.do(ctx, http.MethodGet, path, nil, &snapshot)
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (c *HTTPClient) SampleSnapshots(ctx context.Context, entityType string, limit int) ([]map[string]any, error) {
	var response struct {
		Entities []map[string]any `json:"entities"`
	}

	path := fmt.Sprintf("/api/%s/snapshots?limit=%s", url.PathEscape(entityType), strconv.Itoa(limit))

	err := c.do(ctx, http.MethodGet, path, nil, &response)
	if err != nil {
		return nil, err
	}

	return response.Entities, nil
}

func (c *HTTPClient) MoveStage(ctx context.Context, entity models.EntityRef, targetStage string) error {
	path := fmt.Sprintf("/api/%s/%s/stage", url.PathEscape(entity.Type), url.PathEscape(entity.ID))

	return c.do(ctx, http.MethodPut, path, map[string]any{"stage": targetStage}, nil)
}

func (c *HTTPClient) AssignUser(ctx context.Context, entity models.EntityRef, userID, role string) error {
	path := fmt.Sprintf("/api/%s/%s/assignee", url.PathEscape(entity.Type), url.PathEscape(entity.ID))

	return c.do(ctx, http.MethodPut, path, map[string]any{"user_id": userID, "role": role}, nil)
}

func (c *HTTPClient) AddTag(ctx context.Context, entity models.EntityRef, tag string) error {
	path := fmt.Sprintf("/api/%s/%s/tags", url.PathEscape(entity.Type), url.PathEscape(entity.ID))

	return c.do(ctx, http.MethodPost, path, map[string]any{"tag": tag}, nil)
}

func (c *HTTPClient) Send(ctx context.Context, notification Notification) error {
	return c.do(ctx, http.MethodPost, "/api/notifications", notification, nil)
}

func (c *HTTPClient) RequestEvaluation(ctx context.Context, entity models.EntityRef, model string, notifyOwner bool) (string, error) {
	var response struct {
		JobID string `json:"job_id"`
	}

	body := map[string]any{
		"entity_type":  entity.Type,
		"entity_id":    entity.ID,
		"model":        model,
		"notify_owner": notifyOwner,
	}

	err := c.do(ctx, http.MethodPost, "/api/teaming/evaluations", body, &response)
	if err != nil {
		return "", err
	}

	return response.JobID, nil
}

func (c *HTTPClient) UpcomingDeadlines(ctx context.Context, window time.Duration) ([]Deadline, error) {
	var response struct {
		Deadlines []Deadline `json:"deadlines"`
	}

	path := "/api/deadlines?window=" + url.QueryEscape(window.String())

	err := c.do(ctx, http.MethodGet, path, nil, &response)
	if err != nil {
		return nil, err
	}

	return response.Deadlines, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("platform request %s %s failed: %w", method, path, err)
	}

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return ErrEntityNotFound
	}

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return fmt.Errorf("platform request %s %s returned status %d: %s", method, path, resp.StatusCode, payload)
	}

	if out == nil {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return fmt.Errorf("failed to decode response for %s %s: %w", method, path, err)
	}

	return nil
}
