package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr
}

func newTestStreamQueue(t *testing.T) *RedisStreamQueue {
	t.Helper()
	mr := newTestRedis(t)
	return streamQueueAgainst(t, mr, 30*time.Second)
}

func streamQueueAgainst(t *testing.T, mr *miniredis.Miniredis, claimMinIdle time.Duration) *RedisStreamQueue {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStreamQueue(client, "test_stream", "test_workers", claimMinIdle)
}

func TestRedisStreamQueue_PublishIncreasesLength(t *testing.T) {
	q := newTestStreamQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, HitEvent{ShortCode: "abc123"}))

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, length)
}

func TestRedisStreamQueue_ConsumeThenAck(t *testing.T) {
	q := newTestStreamQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, HitEvent{ShortCode: "abc123"}))

	msgs, err := q.Consume(ctx, 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "abc123", msgs[0].Event.ShortCode)

	require.NoError(t, q.Ack(ctx, []string{msgs[0].ID}))
}

// TestRedisStreamQueue_CrashedConsumerRedeliversToAnother simulates the
// S6 scenario from spec.md §4.3: consumer A receives a batch and dies
// before acking it; a second consumer in the same group must still be
// able to pick those messages up, even though it never shares A's
// consumer name.
func TestRedisStreamQueue_CrashedConsumerRedeliversToAnother(t *testing.T) {
	mr := newTestRedis(t)
	ctx := context.Background()

	const claimMinIdle = 30 * time.Millisecond

	consumerA := streamQueueAgainst(t, mr, claimMinIdle)
	require.NoError(t, consumerA.Publish(ctx, HitEvent{ShortCode: "abc123"}))
	require.NoError(t, consumerA.Publish(ctx, HitEvent{ShortCode: "def456"}))

	delivered, err := consumerA.Consume(ctx, 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, delivered, 2)

	// consumerA is discarded here without ever acking: this is the
	// crash. It never calls Ack, so both messages stay pending under
	// a consumer name nothing will ever read from again.

	time.Sleep(2 * claimMinIdle)

	consumerB := streamQueueAgainst(t, mr, claimMinIdle)
	redelivered, err := consumerB.Consume(ctx, 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, redelivered, 2)

	codes := []string{redelivered[0].Event.ShortCode, redelivered[1].Event.ShortCode}
	assert.ElementsMatch(t, []string{"abc123", "def456"}, codes)

	ids := []string{redelivered[0].ID, redelivered[1].ID}
	require.NoError(t, consumerB.Ack(ctx, ids))
}
