package infra

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCacheEntries bounds the response cache when no size is configured.
const DefaultCacheEntries = 256

// Cache is a bounded, expiring response cache. A nil *Cache is valid and
// never stores anything, which is how caching is switched off.
type Cache struct {
	lru *expirable.LRU[string, []byte]
}

// NewCache returns a cache holding at most size entries for ttl each.
// A ttl of zero or less disables caching and returns nil.
func NewCache(size int, ttl time.Duration) *Cache {
	if ttl <= 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultCacheEntries
	}
	return &Cache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns the cached body for key.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

// Set stores body under key.
func (c *Cache) Set(key string, body []byte) {
	if c == nil {
		return
	}
	c.lru.Add(key, body)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c != nil
}

// Key builds a cache key from a namespace and a request payload. The
// payload is reduced to its xxhash digest so keys stay short.
func Key(namespace string, payload []byte) string {
	return fmt.Sprintf("%s:%016x", namespace, xxhash.Sum64(payload))
}
