// Package engine implements rule matching, action execution and trigger
// dispatch.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bidflow/bidflow/pkg/conditions"
	"github.com/bidflow/bidflow/pkg/models"
	"github.com/bidflow/bidflow/pkg/persistence"
)

// DefaultCacheTTL bounds how long a dispatch may run against a rule set that
// has since been edited.
const DefaultCacheTTL = 5 * time.Second

// Matcher selects the rules a trigger event fires: enabled, matching trigger
// type, every condition true, ordered by priority then id.
type Matcher struct {
	rules  persistence.RuleRepository
	cache  *rulesCache
	logger *slog.Logger
}

func NewMatcher(rules persistence.RuleRepository, cacheTTL time.Duration, logger *slog.Logger) *Matcher {
	var cache *rulesCache
	if cacheTTL > 0 {
		cache = newRulesCache(cacheTTL)
	}

	return &Matcher{
		rules:  rules,
		cache:  cache,
		logger: logger.With("module", "matcher"),
	}
}

// Match returns the rules that fire for one trigger event, in execution order.
// The returned rules are the snapshot loaded for this event; later rule edits
// do not affect them.
func (m *Matcher) Match(ctx context.Context, triggerType models.TriggerType, snapshot map[string]any) ([]*models.Rule, error) {
	candidates, err := m.candidates(ctx, triggerType)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Rule, 0, len(candidates))

	for _, rule := range candidates {
		if conditions.EvaluateAll(rule.Conditions, snapshot) {
			matched = append(matched, rule)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Less(matched[j])
	})

	return matched, nil
}

// Test dry-runs one rule against a sample entity set: it counts the samples
// whose conditions all hold. No action handler runs and no execution row is
// written. The rule's enabled flag is ignored so operators can validate a
// rule before enabling it.
func (m *Matcher) Test(ctx context.Context, ruleID string, samples []map[string]any) (int, error) {
	rule, err := m.rules.GetByID(ctx, ruleID)
	if err != nil {
		return 0, fmt.Errorf("failed to load rule for dry-run: %w", err)
	}

	wouldMatch := 0

	for _, sample := range samples {
		if conditions.EvaluateAll(rule.Conditions, sample) {
			wouldMatch++
		}
	}

	return wouldMatch, nil
}

// Invalidate drops the cached rule sets. Called by the rule service after
// every write.
func (m *Matcher) Invalidate() {
	if m.cache != nil {
		m.cache.invalidate()
	}
}

func (m *Matcher) candidates(ctx context.Context, triggerType models.TriggerType) ([]*models.Rule, error) {
	if m.cache != nil {
		if rules, ok := m.cache.get(triggerType); ok {
			return rules, nil
		}
	}

	enabled := true

	rules, err := m.rules.List(ctx, persistence.RuleFilter{
		TriggerType: &triggerType,
		Enabled:     &enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list rules for trigger %s: %w", triggerType, err)
	}

	if m.cache != nil {
		m.cache.put(triggerType, rules)
	}

	return rules, nil
}
