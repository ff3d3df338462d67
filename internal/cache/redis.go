package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// RedisCache is the durable cache backend. Calls are routed through a
// circuit breaker so a flapping or unreachable Redis degrades to cache
// misses instead of adding per-call dial-timeout latency to the
// redirect path.
type RedisCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
}

// NewRedisCache wraps client in a RedisCache. name is used as the
// breaker's identity in logs/metrics.
func NewRedisCache(client *redis.Client, name string) *RedisCache {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A cache miss (redis.Nil) is a healthy answer, not a failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
	}
	return &RedisCache{client: client, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (c *RedisCache) Get(ctx context.Context, code string) (string, bool, error) {
	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.client.Get(ctx, Key(code)).Result()
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cache: redis get: %w", err)
	}
	return v.(string), true, nil
}

func (c *RedisCache) Set(ctx context.Context, code, longURL string, ttl time.Duration) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, Key(code), longURL, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, code string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Del(ctx, Key(code)).Err()
	})
	if err != nil {
		return fmt.Errorf("cache: redis delete: %w", err)
	}
	return nil
}

func (c *RedisCache) Exists(ctx context.Context, code string) (bool, error) {
	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.client.Exists(ctx, Key(code)).Result()
	})
	if err != nil {
		return false, fmt.Errorf("cache: redis exists: %w", err)
	}
	return v.(int64) > 0, nil
}

func (c *RedisCache) Clear(ctx context.Context) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		iter := c.client.Scan(ctx, 0, "url:*", 0).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, nil
		}
		return nil, c.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("cache: redis clear: %w", err)
	}
	return nil
}
