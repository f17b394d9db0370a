package application

import (
	"slices"
	"sync"
	"time"
)

const (
	defaultWarningTTL     = 5 * time.Minute
	defaultWarningEntries = 256
)

// warningCache remembers the overlap warnings computed for an owner's session
// set. A hit requires the set version the warnings were computed from, so any
// committed change makes the entry unreachable even before Invalidate runs.
type warningCache struct {
	mu      sync.Mutex
	now     func() time.Time
	ttl     time.Duration
	limit   int
	entries map[string]cachedWarnings
}

type cachedWarnings struct {
	version  uint64
	warnings []ConflictWarning
	storedAt time.Time
}

func newWarningCache(ttl time.Duration, limit int, now func() time.Time) *warningCache {
	if ttl <= 0 {
		ttl = defaultWarningTTL
	}
	if limit <= 0 {
		limit = defaultWarningEntries
	}
	if now == nil {
		now = time.Now
	}
	return &warningCache{now: now, ttl: ttl, limit: limit, entries: make(map[string]cachedWarnings)}
}

// Get returns a copy of the owner's warnings for version. Stale or expired
// entries are dropped on the way out.
func (c *warningCache) Get(ownerID string, version uint64) ([]ConflictWarning, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[ownerID]
	if !ok {
		return nil, false
	}
	if entry.version != version || c.expired(entry) {
		delete(c.entries, ownerID)
		return nil, false
	}
	return slices.Clone(entry.warnings), true
}

// Store records warnings for the owner's set version, evicting the oldest
// entry once the cache is full.
func (c *warningCache) Store(ownerID string, version uint64, warnings []ConflictWarning) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, key)
		}
	}
	if _, ok := c.entries[ownerID]; !ok && len(c.entries) >= c.limit {
		c.evictOldest()
	}
	c.entries[ownerID] = cachedWarnings{version: version, warnings: slices.Clone(warnings), storedAt: c.now()}
}

// Invalidate forgets the owner's entry.
func (c *warningCache) Invalidate(ownerID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, ownerID)
	c.mu.Unlock()
}

func (c *warningCache) expired(entry cachedWarnings) bool {
	return c.now().Sub(entry.storedAt) > c.ttl
}

func (c *warningCache) evictOldest() {
	oldest := ""
	var oldestAt time.Time
	for key, entry := range c.entries {
		if oldest == "" || entry.storedAt.Before(oldestAt) {
			oldest, oldestAt = key, entry.storedAt
		}
	}
	delete(c.entries, oldest)
}
