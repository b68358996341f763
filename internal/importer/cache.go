package importer

import (
	"context"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a positive name resolution stays cached.
const DefaultCacheTTL = 300 * time.Second

// LookupFunc resolves a display name to its numeric id in the store.
// found=false means no row carries that name; it is not an error.
type LookupFunc func(ctx context.Context, name string) (int64, bool, error)

type cacheEntry struct {
	id       int64
	cachedAt time.Time
}

// Cache maps a template-set or theme display name to its numeric id with
// TTL-based invalidation.
//
// Only positive hits are cached. A negative resolution re-queries the store
// on every call, so a set created moments after a miss is picked up on the
// next call at the cost of a repeated query; misses are rare after warm-up.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	lookup  LookupFunc
	entries map[string]cacheEntry
}

// NewCache creates a cache backed by the given lookup.
// A non-positive ttl falls back to DefaultCacheTTL.
func NewCache(lookup LookupFunc, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		lookup:  lookup,
		entries: make(map[string]cacheEntry),
	}
}

// Resolve returns the numeric id for name, consulting the cache first.
// An entry is reused only while its age is below the TTL; expired entries
// are re-queried and refreshed on a positive result.
func (c *Cache) Resolve(ctx context.Context, name string) (int64, bool, error) {
	c.mu.Lock()
	entry, ok := c.entries[name]
	if ok && time.Since(entry.cachedAt) < c.ttl {
		c.mu.Unlock()
		return entry.id, true, nil
	}
	if ok {
		delete(c.entries, name)
	}
	c.mu.Unlock()

	id, found, err := c.lookup(ctx, name)
	if err != nil {
		return 0, false, err
	}
	if !found {
		return 0, false, nil
	}

	c.mu.Lock()
	c.entries[name] = cacheEntry{id: id, cachedAt: time.Now()}
	c.mu.Unlock()
	return id, true, nil
}

// Invalidate drops all cached entries. Used by full-sync starts and tests.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of live cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
