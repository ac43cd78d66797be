package utils

import (
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem struct {
	data      any
	expiresAt time.Time
}

// Cache is a size-bounded LRU whose entries also expire.
type Cache struct {
	lruCache *lru.Cache[string, cacheItem]
}

var cacheInstance *Cache

// NewCache creates a cache holding at most size entries.
func NewCache(size int) *Cache {
	l, err := lru.New[string, cacheItem](size)
	if err != nil {
		slog.Error("failed to create LRU cache, falling back to 128 entries", "error", err)
		l, _ = lru.New[string, cacheItem](128)
	}
	return &Cache{lruCache: l}
}

// GetCache returns the shared process cache.
func GetCache() *Cache {
	if cacheInstance == nil {
		cacheInstance = NewCache(500)
	}
	return cacheInstance
}

func (c *Cache) Set(key string, data any, ttl time.Duration) {
	c.lruCache.Add(key, cacheItem{data: data, expiresAt: time.Now().Add(ttl)})
}

// Get returns nil for missing or expired keys.
func (c *Cache) Get(key string) any {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil
	}
	if time.Now().After(val.expiresAt) {
		c.lruCache.Remove(key)
		return nil
	}
	return val.data
}

func (c *Cache) Delete(key string) {
	c.lruCache.Remove(key)
}
