package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is an in-process FIFO queue for local development and
// tests. Ack is a no-op: messages are removed from the queue the
// moment Consume hands them out, so redelivery on worker crash is not
// provided by this backend (matching the accepted weaker in-memory
// variant of the durable contract).
type MemoryQueue struct {
	mu       sync.Mutex
	messages []Message
}

// NewMemoryQueue builds an empty MemoryQueue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Publish(_ context.Context, event HitEvent) error {
	q.mu.Lock()
	q.messages = append(q.messages, Message{ID: uuid.NewString(), Event: event})
	q.mu.Unlock()
	return nil
}

// Consume returns queued messages at once if there are any. Otherwise
// it sleeps for the whole of block (or until ctx is done) and then
// returns whatever has arrived, so a worker polling an idle queue
// doesn't spin the CPU; it does not wake early when a message arrives.
func (q *MemoryQueue) Consume(ctx context.Context, max int, block time.Duration) ([]Message, error) {
	if msgs := q.drain(max); msgs != nil {
		return msgs, nil
	}

	timer := time.NewTimer(block)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return q.drain(max), nil
	}
}

func (q *MemoryQueue) drain(max int) []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.messages) == 0 {
		return nil
	}
	if max <= 0 || max > len(q.messages) {
		max = len(q.messages)
	}

	out := make([]Message, max)
	copy(out, q.messages[:max])
	q.messages = q.messages[max:]
	return out
}

func (q *MemoryQueue) Ack(_ context.Context, _ []string) error {
	return nil
}

func (q *MemoryQueue) Length(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.messages)), nil
}
