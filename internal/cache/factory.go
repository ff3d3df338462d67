package cache

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Backend selects which Strategy implementation a deployment uses.
type Backend string

const (
	BackendRedis  Backend = "remote"
	BackendMemory Backend = "memory"
	BackendNull   Backend = "null"
)

// Config carries the parameters needed to build any Strategy.
type Config struct {
	Backend     Backend
	RedisClient *redis.Client // required for BackendRedis
	Name        string        // breaker identity, defaults to "cache"
}

// New constructs the Strategy named by cfg.Backend.
func New(cfg Config) (Strategy, error) {
	switch cfg.Backend {
	case BackendRedis:
		if cfg.RedisClient == nil {
			return nil, fmt.Errorf("cache: redis backend requires a client")
		}
		name := cfg.Name
		if name == "" {
			name = "cache"
		}
		return NewRedisCache(cfg.RedisClient, name), nil
	case BackendMemory:
		return NewMemoryCache(), nil
	case BackendNull:
		return NewNullCache(), nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}
}
