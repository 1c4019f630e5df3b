package cache

import (
	"context"
	"time"

	"wikijournalbot/pkg/store"
)

// Cacher defines the caching interface.
type Cacher interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// SQLiteCache implements Cacher on top of the store with a maximum entry age.
type SQLiteCache struct {
	store store.CacheStore
	ttl   time.Duration
	now   func() time.Time
}

// NewSQLiteCache creates a new cache. A ttl of zero or less never expires entries.
func NewSQLiteCache(s store.CacheStore, ttl time.Duration) *SQLiteCache {
	return &SQLiteCache{store: s, ttl: ttl, now: time.Now}
}

// GetCache returns the value when present and younger than the ttl.
func (c *SQLiteCache) GetCache(ctx context.Context, key string) ([]byte, bool) {
	val, createdAt, found := c.store.GetCacheEntry(ctx, key)
	if !found {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(createdAt) > c.ttl {
		return nil, false
	}
	return val, true
}

func (c *SQLiteCache) SetCache(ctx context.Context, key string, val []byte) error {
	return c.store.SetCache(ctx, key, val)
}

// Nop is a Cacher that never hits. Used when caching is disabled.
type Nop struct{}

func (Nop) GetCache(context.Context, string) ([]byte, bool) { return nil, false }
func (Nop) SetCache(context.Context, string, []byte) error  { return nil }
