// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"sync"

	"github.com/neuland-ingolstadt/campus-client/internal/domain/campus"
)

// Cache implements campus.CacheStore with an in-process map.
// Thread-safe for concurrent access. Entries persist for the process
// lifetime; staleness policy is applied by higher layers.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewCache creates an empty in-memory cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string][]byte),
	}
}

// Get returns the cached payload for key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	payload, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	// Return a copy to prevent mutation of the stored payload.
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, true, nil
}

// Set stores payload under key.
func (c *Cache) Set(ctx context.Context, key string, payload []byte) error {
	stored := make([]byte, len(payload))
	copy(stored, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = stored
	return nil
}

// Delete removes the entry for key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Purge removes all entries.
func (c *Cache) Purge(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
	return nil
}

// Size returns the number of cached entries. Useful for tests.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Compile-time interface verification.
var _ campus.CacheStore = (*Cache)(nil)
