package store

import (
	"sync"
	"time"

	"taskledger/pkg/ledger"
)

// Cache holds parsed per-author sections for a fixed time-to-live, bounding
// store reads during a burst of messages. It is a performance optimization
// only: the write path never takes a version token from it, and entries are
// explicitly invalidated after every successful write for the author.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	section   ledger.Section
	fetchedAt time.Time
}

// NewCache creates a cache with the given TTL. A non-positive TTL disables
// caching entirely.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached section for an author if present and fresh.
func (c *Cache) Get(author string) (ledger.Section, bool) {
	if c.ttl <= 0 {
		return ledger.Section{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[author]
	if !ok || c.now().Sub(entry.fetchedAt) > c.ttl {
		return ledger.Section{}, false
	}
	return entry.section, true
}

// Put records a freshly fetched section for an author.
func (c *Cache) Put(author string, section ledger.Section) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[author] = cacheEntry{section: section, fetchedAt: c.now()}
}

// Invalidate drops an author's entry. Called after every successful write
// for that author so the next read reflects persisted state.
func (c *Cache) Invalidate(author string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, author)
}
