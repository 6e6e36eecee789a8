package engine

import (
	"sync"
	"time"

	"github.com/bidflow/bidflow/pkg/models"
)

// rulesCache is a short-lived read-through cache over the rule store, keyed by
// trigger type. Entries expire after the TTL and the rule service invalidates
// the whole cache on every write, so concurrent dispatch workers never observe
// a stale rule set for longer than one TTL.
type rulesCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[models.TriggerType]cacheEntry
}

type cacheEntry struct {
	rules     []*models.Rule
	fetchedAt time.Time
}

func newRulesCache(ttl time.Duration) *rulesCache {
	return &rulesCache{
		ttl:     ttl,
		entries: make(map[models.TriggerType]cacheEntry),
	}
}

func (c *rulesCache) get(triggerType models.TriggerType) ([]*models.Rule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[triggerType]
	if !ok || time.Since(entry.fetchedAt) > c.ttl {
		return nil, false
	}

	return entry.rules, true
}

func (c *rulesCache) put(triggerType models.TriggerType, rules []*models.Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[triggerType] = cacheEntry{rules: rules, fetchedAt: time.Now()}
}

func (c *rulesCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[models.TriggerType]cacheEntry)
}
