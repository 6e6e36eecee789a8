package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/bidflow/bidflow/pkg/models"
	"github.com/bidflow/bidflow/pkg/persistence"
	"github.com/google/uuid"
)

// RuleRepository stores one JSON file per rule under <root>/rules.
type RuleRepository struct {
	root string
}

func NewRuleRepository(root string) *RuleRepository {
	return &RuleRepository{root: root}
}

func (rr *RuleRepository) Create(ctx context.Context, rule *models.Rule) (*models.Rule, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate rule ID: %w", err)
	}

	now := time.Now().UTC()
	rule.ID = id.String()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	err = rr.write(rule)
	if err != nil {
		return nil, persistence.NewRuleError("Create", rule.ID, err)
	}

	return rule, nil
}

func (rr *RuleRepository) Update(ctx context.Context, rule *models.Rule) (*models.Rule, error) {
	existing, err := rr.GetByID(ctx, rule.ID)
	if err != nil {
		return nil, err
	}

	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now().UTC()

	err = rr.write(rule)
	if err != nil {
		return nil, persistence.NewRuleError("Update", rule.ID, err)
	}

	return rule, nil
}

func (rr *RuleRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(rr.path(id))
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return persistence.NewRuleError("Delete", id, err)
	}

	return nil
}

func (rr *RuleRepository) GetByID(_ context.Context, id string) (*models.Rule, error) {
	body, err := os.ReadFile(filepath.Clean(rr.path(id)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewRuleError("GetByID", id, persistence.ErrRuleNotFound)
		}

		return nil, fmt.Errorf("failed to read rule %s: %w", id, err)
	}

	var rule models.Rule

	err = json.Unmarshal(body, &rule)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal rule %s: %w", id, err)
	}

	return &rule, nil
}

func (rr *RuleRepository) List(ctx context.Context, filter persistence.RuleFilter) ([]*models.Rule, error) {
	root := os.DirFS(rr.root + "/rules")

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list rule files: %w", err)
	}

	rules := make([]*models.Rule, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		ruleID := file[:len(file)-5] // strip .json

		rule, err := rr.GetByID(ctx, ruleID)
		if err != nil {
			return nil, fmt.Errorf("failed to load rule %s: %w", ruleID, err)
		}

		if filter.TriggerType != nil && rule.TriggerType != *filter.TriggerType {
			continue
		}

		if filter.Enabled != nil && rule.Enabled != *filter.Enabled {
			continue
		}

		rules = append(rules, rule)
	}

	sort.Slice(rules, func(i, j int) bool {
		return rules[i].Less(rules[j])
	})

	return rules, nil
}

func (rr *RuleRepository) write(rule *models.Rule) error {
	err := os.MkdirAll(rr.root+"/rules", 0750)
	if err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}

	data, err := json.MarshalIndent(rule, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rule %s: %w", rule.ID, err)
	}

	return os.WriteFile(rr.path(rule.ID), data, 0600)
}

func (rr *RuleRepository) path(id string) string {
	return path.Join(rr.root, "rules", id+".json")
}
