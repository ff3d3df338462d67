package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache is an in-process cache for local development and tests.
// TTL is best-effort: expired entries are only reaped lazily, on the
// next Get/Exists for that key.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]entry
}

// NewMemoryCache builds an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]entry)}
}

func (c *MemoryCache) Get(_ context.Context, code string) (string, bool, error) {
	c.mu.RLock()
	e, ok := c.data[code]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if e.expired(time.Now()) {
		c.mu.Lock()
		delete(c.data, code)
		c.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, code, longURL string, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.data[code] = entry{value: longURL, expiresAt: expiresAt}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, code string) error {
	c.mu.Lock()
	delete(c.data, code)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Exists(ctx context.Context, code string) (bool, error) {
	_, ok, err := c.Get(ctx, code)
	return ok, err
}

func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.data = make(map[string]entry)
	c.mu.Unlock()
	return nil
}
