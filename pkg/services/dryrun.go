package services

import (
	"context"
	"fmt"

	"github.com/bidflow/bidflow/pkg/persistence"
)

const (
	defaultSampleEntityType = "opportunity"
	defaultSampleLimit      = 10
	maxSampleLimit          = 100
)

// TestRuleRequest selects the sample set a dry-run evaluates: inline entity
// snapshots, or an entity type resolved through the snapshot provider.
type TestRuleRequest struct {
	Entities   []map[string]any `json:"entities,omitempty"`
	EntityType string           `json:"entity_type,omitempty"`
	Limit      int              `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

// TestRuleResponse reports how many samples the rule's conditions matched.
type TestRuleResponse struct {
	WouldMatch int `json:"would_match"`
	SampleSize int `json:"sample_size"`
}

// Test dry-runs one rule against a sample set. No action handler runs and no
// execution row is written; the rule does not need to be enabled.
func (r *Rule) Test(ctx context.Context, ruleID string, req TestRuleRequest) (*TestRuleResponse, error) {
	samples := req.Entities

	if len(samples) == 0 {
		entityType := req.EntityType
		if entityType == "" {
			entityType = defaultSampleEntityType
		}

		limit := req.Limit
		if limit <= 0 {
			limit = defaultSampleLimit
		}

		if limit > maxSampleLimit {
			limit = maxSampleLimit
		}

		var err error

		samples, err = r.snapshots.SampleSnapshots(ctx, entityType, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to load sample snapshots: %w", err)
		}
	}

	wouldMatch, err := r.matcher.Test(ctx, ruleID, samples)
	if err != nil {
		if persistence.IsRuleNotFound(err) {
			return nil, ErrRuleNotFound
		}

		return nil, err
	}

	return &TestRuleResponse{WouldMatch: wouldMatch, SampleSize: len(samples)}, nil
}
