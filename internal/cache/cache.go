// Package cache holds the in-memory mirror of the watched store prefix.
//
// The cache is written only by the engine's event loop (the watcher applies
// every put and delete before anything else runs) and read by the
// matchmaker, propagator, and updater between suspension points. The mutex
// exists for external readers such as tests and diagnostics; the engine
// itself is single-writer.
package cache

import (
	"sort"
	"sync"

	"github.com/cnscp/cns-orchestrator/internal/keys"
)

// Cache maps full store keys to their current string values.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// Load replaces the cache contents with an initial snapshot from the store.
func (c *Cache) Load(entries map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string, len(entries))
	for k, v := range entries {
		c.entries[k] = v
	}
}

// Set stores a value.
func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Delete removes a key. Removing an absent key is a no-op.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Get returns the value for key and whether it is present.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot copies the current contents.
func (c *Cache) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Keys returns all cached keys in sorted order.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Filter returns the entries whose keys match the wildcard pattern.
func (c *Cache) Filter(pattern string) map[string]string {
	return keys.Filter(c.Snapshot(), pattern)
}
