package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// RedisStreamQueue is the durable backend: a Redis Stream consumed
// through a consumer group, giving at-least-once delivery with
// explicit acknowledgement and automatic redelivery of unacked
// messages to other consumers.
type RedisStreamQueue struct {
	client       *redis.Client
	stream       string
	group        string
	consumer     string
	claimMinIdle time.Duration
	publishBreak *gobreaker.CircuitBreaker
}

// NewRedisStreamQueue builds a RedisStreamQueue bound to stream/group.
// The consumer name embeds the hostname and a process-unique uuid so
// multiple worker processes never collide as the same consumer.
//
// claimMinIdle is how long a message may sit unacked in another
// consumer's pending entries list before this consumer is allowed to
// steal it. This is what makes a crashed worker's in-flight messages
// redeliverable to its replacement: the replacement gets a brand new
// consumer name, so it can never read the dead consumer's own PEL —
// only a claim against the whole group's pending entries recovers
// them.
func NewRedisStreamQueue(client *redis.Client, stream, group string, claimMinIdle time.Duration) *RedisStreamQueue {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	consumer := fmt.Sprintf("worker-%s-%s", host, uuid.NewString())

	if claimMinIdle <= 0 {
		claimMinIdle = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "queue-publish",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &RedisStreamQueue{
		client:       client,
		stream:       stream,
		group:        group,
		consumer:     consumer,
		claimMinIdle: claimMinIdle,
		publishBreak: gobreaker.NewCircuitBreaker(settings),
	}
}

func (q *RedisStreamQueue) ensureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (q *RedisStreamQueue) Publish(ctx context.Context, event HitEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("queue: marshal hit event: %w", err)
	}

	_, err = q.publishBreak.Execute(func() (interface{}, error) {
		return q.client.XAdd(ctx, &redis.XAddArgs{
			Stream: q.stream,
			Values: map[string]interface{}{"event": payload},
		}).Result()
	})
	if err != nil {
		return fmt.Errorf("queue: publish: %w", err)
	}
	return nil
}

// Consume reads up to max pending messages for this consumer group,
// blocking up to block if none are immediately available. It
// deliberately does not go through the publish breaker: a worker that
// cannot reach Redis needs a loud, retried failure, not a silent
// degrade.
//
// Before reading new messages, it first claims any entry that has sat
// unacked past claimMinIdle regardless of which consumer it was
// originally delivered to. That is what makes a killed-and-restarted
// worker's pending messages redeliverable: without it, those entries
// stay attributed to a consumer name that no longer exists and are
// never handed to anyone again.
func (q *RedisStreamQueue) Consume(ctx context.Context, max int, block time.Duration) ([]Message, error) {
	if err := q.ensureGroup(ctx); err != nil {
		return nil, fmt.Errorf("queue: ensure consumer group: %w", err)
	}

	claimed, err := q.claimStale(ctx, max)
	if err != nil {
		return nil, fmt.Errorf("queue: claim stale: %w", err)
	}
	if len(claimed) > 0 {
		return claimed, nil
	}

	res, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    int64(max),
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("queue: consume: %w", err)
	}

	var out []Message
	for _, stream := range res {
		out = append(out, messagesFromXMessages(stream.Messages)...)
	}
	return out, nil
}

// claimStale looks for pending entries (delivered to some consumer,
// never acked) that have been idle at least claimMinIdle, and
// transfers ownership of up to max of them to this consumer. It is
// the redelivery path for a crashed consumer's in-flight batch: the
// replacement process never shares the dead consumer's name, so only
// a claim against the group's shared pending entries list — not a
// read of "this consumer's own PEL" — can recover them.
func (q *RedisStreamQueue) claimStale(ctx context.Context, max int) ([]Message, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.stream,
		Group:  q.group,
		Idle:   q.claimMinIdle,
		Start:  "-",
		End:    "+",
		Count:  int64(max),
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	ids := make([]string, len(pending))
	for i, p := range pending {
		ids[i] = p.ID
	}

	claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  q.claimMinIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return messagesFromXMessages(claimed), nil
}

func messagesFromXMessages(xms []redis.XMessage) []Message {
	var out []Message
	for _, xm := range xms {
		raw, ok := xm.Values["event"].(string)
		if !ok {
			continue
		}
		var ev HitEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			continue
		}
		out = append(out, Message{ID: xm.ID, Event: ev})
	}
	return out
}

func (q *RedisStreamQueue) Ack(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := q.client.XAck(ctx, q.stream, q.group, ids...).Err(); err != nil {
		return fmt.Errorf("queue: ack: %w", err)
	}
	return nil
}

func (q *RedisStreamQueue) Length(ctx context.Context) (int64, error) {
	n, err := q.client.XLen(ctx, q.stream).Result()
	if err != nil {
		return 0, fmt.Errorf("queue: length: %w", err)
	}
	return n, nil
}
