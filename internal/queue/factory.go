package queue

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend selects which Strategy implementation a deployment uses.
type Backend string

const (
	BackendRedisStreams Backend = "streams"
	BackendMemory       Backend = "memory"
)

// Config carries the parameters needed to build any Strategy.
type Config struct {
	Backend       Backend
	RedisClient   *redis.Client // required for BackendRedisStreams
	Stream        string
	ConsumerGroup string
	// ClaimMinIdle is how long a message may sit pending and unacked
	// before another consumer in the group may claim it. Zero picks
	// NewRedisStreamQueue's default.
	ClaimMinIdle time.Duration
}

// New constructs the Strategy named by cfg.Backend.
func New(cfg Config) (Strategy, error) {
	switch cfg.Backend {
	case BackendRedisStreams:
		if cfg.RedisClient == nil {
			return nil, fmt.Errorf("queue: redis streams backend requires a client")
		}
		stream := cfg.Stream
		if stream == "" {
			stream = "url_hits"
		}
		group := cfg.ConsumerGroup
		if group == "" {
			group = "url_workers"
		}
		return NewRedisStreamQueue(cfg.RedisClient, stream, group, cfg.ClaimMinIdle), nil
	case BackendMemory:
		return NewMemoryQueue(), nil
	default:
		return nil, fmt.Errorf("queue: unknown backend %q", cfg.Backend)
	}
}
