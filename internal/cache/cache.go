// Package cache implements the cache-aside layer sitting in front of
// the authoritative store: a Strategy interface with a durable Redis
// backend, an in-process fallback, and a null backend for tests and
// environments that want the store to be the sole source of truth.
package cache

import (
	"context"
	"time"
)

// Strategy is a key/value cache keyed by short code.
type Strategy interface {
	Get(ctx context.Context, code string) (longURL string, ok bool, err error)
	Set(ctx context.Context, code, longURL string, ttl time.Duration) error
	Delete(ctx context.Context, code string) error
	Exists(ctx context.Context, code string) (bool, error)
	Clear(ctx context.Context) error
}

// Key builds the cache key for a short code, matching the teacher's
// "url:"+code convention.
func Key(code string) string {
	return "url:" + code
}
