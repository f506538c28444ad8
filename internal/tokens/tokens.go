// Package tokens keeps the set of accepted X-API-Key values and their
// per-key rate limits.
package tokens

import (
	"errors"
	"sync"
)

var (
	// ErrInvalidAPIKey signals that the provided API key is not known.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrStoreNotReady signals that no key set has been loaded yet.
	ErrStoreNotReady = errors.New("token store not ready")
)

// Cache is a concurrency-safe key → limit map.
type Cache struct {
	mu sync.RWMutex
	m  map[string]int
}

func NewCache() *Cache {
	return &Cache{}
}

// FromMap returns a ready cache holding a copy of m.
func FromMap(m map[string]int) *Cache {
	c := NewCache()
	c.Replace(m)
	return c
}

// Replace swaps in a copy of m. A nil map still marks the cache ready.
func (c *Cache) Replace(m map[string]int) {
	cp := make(map[string]int, len(m))
	for k, v := range m {
		cp[k] = v
	}
	c.mu.Lock()
	c.m = cp
	c.mu.Unlock()
}

// Ready returns true once Replace has been called.
func (c *Cache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m != nil
}

// Len returns the number of known keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Validate checks key against the cache.
func (c *Cache) Validate(key string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.m == nil {
		return ErrStoreNotReady
	}
	if _, ok := c.m[key]; !ok {
		return ErrInvalidAPIKey
	}
	return nil
}

// RateLimit returns the limit for key, or 0 (unlimited) if unknown.
func (c *Cache) RateLimit(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m[key]
}
