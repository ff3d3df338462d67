package cache

import (
	"context"
	"time"
)

// NullCache never stores anything; every Get/Exists reports a miss.
// Useful when a deployment wants the store to be authoritative with
// no caching layer at all.
type NullCache struct{}

// NewNullCache builds a NullCache.
func NewNullCache() *NullCache { return &NullCache{} }

func (NullCache) Get(context.Context, string) (string, bool, error)        { return "", false, nil }
func (NullCache) Set(context.Context, string, string, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Exists(context.Context, string) (bool, error)             { return false, nil }
func (NullCache) Clear(context.Context) error                              { return nil }
