package gemini

import (
	"sync"
)

// Cache stores suggestions by normalized description
type Cache interface {
	Get(key string) (string, bool)
	Set(key string, value string)
}

// DefaultCacheSize bounds the suggestions a MemoryCache keeps
const DefaultCacheSize = 2048

// MemoryCache is an in-memory cache holding at most limit entries. When
// full, the oldest inserted key is evicted.
type MemoryCache struct {
	mu    sync.Mutex
	limit int
	store map[string]string
	order []string
}

// NewMemoryCache creates a cache; limit <= 0 uses DefaultCacheSize
func NewMemoryCache(limit int) *MemoryCache {
	if limit <= 0 {
		limit = DefaultCacheSize
	}
	return &MemoryCache{
		limit: limit,
		store: make(map[string]string),
	}
}

// Get retrieves a value from cache
func (c *MemoryCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, found := c.store[key]
	return value, found
}

// Set stores a value, evicting the oldest entry when the cache is full
func (c *MemoryCache) Set(key string, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists {
		if len(c.order) >= c.limit {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.store, oldest)
		}
		c.order = append(c.order, key)
	}
	c.store[key] = value
}

// Len returns the number of cached suggestions
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.store)
}
