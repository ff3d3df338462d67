package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theakinwande/shortlink/internal/hitstorage"
	"github.com/theakinwande/shortlink/internal/obs"
	"github.com/theakinwande/shortlink/internal/queue"
)

type fakeStore struct {
	deltas  map[string]int64
	calls   int
	failAll bool
}

func (f *fakeStore) BatchIncrementHits(_ context.Context, deltas map[string]int64) error {
	f.calls++
	if f.failAll {
		return errors.New("simulated batch increment failure")
	}
	if f.deltas == nil {
		f.deltas = map[string]int64{}
	}
	for code, d := range deltas {
		f.deltas[code] += d
	}
	return nil
}

// ackTrackingQueue wraps a MemoryQueue to observe whether Ack was
// actually called, which the bare MemoryQueue (a no-op Ack) cannot
// report on its own.
type ackTrackingQueue struct {
	*queue.MemoryQueue
	acked [][]string
}

func newAckTrackingQueue() *ackTrackingQueue {
	return &ackTrackingQueue{MemoryQueue: queue.NewMemoryQueue()}
}

func (q *ackTrackingQueue) Ack(ctx context.Context, ids []string) error {
	q.acked = append(q.acked, ids)
	return q.MemoryQueue.Ack(ctx, ids)
}

// failingHitStorage fails StoreHits exactly once, simulating a crash
// between "received" and "stored" so the message is never acked and
// is redelivered by the queue.
type failingHitStorage struct {
	hitstorage.Strategy
	failNext bool
	stored   []hitstorage.Hit
}

func (f *failingHitStorage) StoreHits(ctx context.Context, hits []hitstorage.Hit) error {
	if f.failNext {
		f.failNext = false
		return errors.New("simulated storage failure")
	}
	f.stored = append(f.stored, hits...)
	return nil
}

func newMetrics() *obs.WorkerMetrics {
	return obs.NewWorkerMetrics(prometheus.NewRegistry())
}

func TestWorker_ProcessesBatchAndFlushesCounts(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, queue.HitEvent{ShortCode: "abc", Timestamp: time.Now()}))
	require.NoError(t, q.Publish(ctx, queue.HitEvent{ShortCode: "abc", Timestamp: time.Now()}))

	hs := &failingHitStorage{}
	st := &fakeStore{}
	w := New(q, hs, st, Config{BatchSize: 10, PollBlock: time.Millisecond, FlushInterval: 0, FlushOnCount: 1}, obs.NewNop(), newMetrics())

	require.NoError(t, w.processOnce(ctx))

	assert.Len(t, hs.stored, 2)
	assert.EqualValues(t, 2, st.deltas["abc"])
}

func TestWorker_StoreFailureLeavesMessageUnacked(t *testing.T) {
	q := newAckTrackingQueue()
	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, queue.HitEvent{ShortCode: "abc", Timestamp: time.Now()}))

	hs := &failingHitStorage{failNext: true}
	st := &fakeStore{}
	w := New(q, hs, st, Config{BatchSize: 10, PollBlock: time.Millisecond}, obs.NewNop(), newMetrics())

	err := w.processOnce(ctx)
	assert.Error(t, err)
	assert.Empty(t, hs.stored)
	assert.Zero(t, st.calls)
	assert.Empty(t, q.acked, "a batch whose store step failed must not be acked")

	// The in-memory queue already popped the message on Consume (its
	// ack is a no-op), so this asserts the documented weaker
	// redelivery guarantee of that backend rather than true
	// redelivery, which the durable Redis Streams backend provides.
	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Zero(t, length)
}

func TestWorker_FlushCommitsAllCodesThenClearsCounts(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, queue.HitEvent{ShortCode: "abc", Timestamp: time.Now()}))
	require.NoError(t, q.Publish(ctx, queue.HitEvent{ShortCode: "xyz", Timestamp: time.Now()}))

	hs := &failingHitStorage{}
	st := &fakeStore{}
	w := New(q, hs, st, Config{BatchSize: 10, PollBlock: time.Millisecond, FlushOnCount: 1}, obs.NewNop(), newMetrics())

	require.NoError(t, w.processOnce(ctx))

	assert.EqualValues(t, 1, st.calls)
	assert.Len(t, st.deltas, 2)
	assert.Empty(t, w.counts)
}

func TestWorker_AckWithheldWhenDueFlushFails(t *testing.T) {
	q := newAckTrackingQueue()
	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, queue.HitEvent{ShortCode: "abc", Timestamp: time.Now()}))

	hs := &failingHitStorage{}
	st := &fakeStore{failAll: true}
	// FlushOnCount: 1 guarantees this batch's flush is attempted (and
	// fails) within this same processOnce call, not a later one.
	w := New(q, hs, st, Config{BatchSize: 10, PollBlock: time.Millisecond, FlushInterval: 0, FlushOnCount: 1}, obs.NewNop(), newMetrics())

	err := w.processOnce(ctx)
	assert.Error(t, err)

	assert.Empty(t, q.acked, "ack must be withheld when the flush covering this batch failed")
	assert.NotEmpty(t, w.counts, "counts must survive for the next flush attempt")
}

func TestWorker_ShutdownFlushesPendingCounts(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, queue.HitEvent{ShortCode: "abc", Timestamp: time.Now()}))

	hs := &failingHitStorage{}
	st := &fakeStore{}
	// FlushOnCount high enough that processOnce won't flush on its own.
	w := New(q, hs, st, Config{BatchSize: 10, PollBlock: time.Millisecond, FlushInterval: time.Hour, FlushOnCount: 1000}, obs.NewNop(), newMetrics())

	require.NoError(t, w.processOnce(ctx))
	assert.Zero(t, st.calls)

	require.NoError(t, w.drainOnShutdown())
	assert.EqualValues(t, 1, st.calls)
}
