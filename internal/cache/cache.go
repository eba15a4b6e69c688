// Package cache provides a thread-safe in-process byte cache with TTL,
// used to memoize deterministic score computations.
package cache

import (
	"crypto/md5"
	"fmt"
	"sync"
	"time"
)

// Item represents a cached item with expiration
type Item struct {
	Data      []byte
	ExpiresAt time.Time
}

// IsExpired checks if the cache item has expired
func (i *Item) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// Cache provides thread-safe caching with TTL
type Cache struct {
	mu     sync.RWMutex
	items  map[string]*Item
	ttl    time.Duration
	hits   int64
	misses int64
}

// New creates a new cache with the specified TTL and starts the
// background cleanup loop.
func New(ttl time.Duration) *Cache {
	cache := &Cache{
		items: make(map[string]*Item),
		ttl:   ttl,
	}

	go cache.cleanup()

	return cache
}

// cleanup removes expired items periodically
func (c *Cache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		for key, item := range c.items {
			if item.IsExpired() {
				delete(c.items, key)
			}
		}
		c.mu.Unlock()
	}
}

// Key creates a consistent cache key from the input
func Key(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// Get retrieves an item from the cache
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists || item.IsExpired() {
		if exists {
			delete(c.items, key)
		}
		c.misses++
		return nil, false
	}

	c.hits++
	return item.Data, true
}

// Set stores an item in the cache
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &Item{
		Data:      data,
		ExpiresAt: time.Now().Add(c.ttl),
	}
}

// Stats returns cache statistics
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return map[string]interface{}{
		"items":       len(c.items),
		"hits":        c.hits,
		"misses":      c.misses,
		"ttl_seconds": c.ttl.Seconds(),
	}
}
