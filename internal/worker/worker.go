// Package worker implements the hit worker: it drains the hit-event
// queue, persists raw hits to analytic storage, accumulates per-code
// counters in memory, and periodically flushes those counters into
// the authoritative store's total_hits column before acknowledging
// the messages it just processed.
//
// State machine per message: received -> stored (hitstorage) ->
// counted (in-memory) -> flushed (store, periodically, many messages
// at once) -> acked (queue) -> forgotten. A crash at any step before
// ack simply leaves the message pending for redelivery; storing a hit
// twice and counting it twice are both safe because total_hits is
// documented as eventually consistent, not exact.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/theakinwande/shortlink/internal/hitstorage"
	"github.com/theakinwande/shortlink/internal/obs"
	"github.com/theakinwande/shortlink/internal/queue"
)

// Store is the subset of store.Store the worker depends on.
type Store interface {
	BatchIncrementHits(ctx context.Context, deltas map[string]int64) error
}

// Config tunes batch size, polling and flush cadence.
type Config struct {
	BatchSize     int
	PollBlock     time.Duration
	FlushInterval time.Duration
	// FlushOnCount forces a flush once the number of distinct codes
	// with pending counts reaches this size, independent of time.
	FlushOnCount int
}

// Worker drains queue.Strategy, persists to hitstorage.Strategy, and
// periodically commits accumulated counts to Store.
type Worker struct {
	queue      queue.Strategy
	hitStorage hitstorage.Strategy
	store      Store
	cfg        Config
	logger     *obs.Logger
	metrics    *obs.WorkerMetrics

	counts    map[string]int64
	lastFlush time.Time
}

// New builds a Worker from its collaborators.
func New(q queue.Strategy, hs hitstorage.Strategy, st Store, cfg Config, logger *obs.Logger, metrics *obs.WorkerMetrics) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.PollBlock <= 0 {
		cfg.PollBlock = 5 * time.Second
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.FlushOnCount <= 0 {
		cfg.FlushOnCount = 50
	}

	return &Worker{
		queue:      q,
		hitStorage: hs,
		store:      st,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		counts:     make(map[string]int64),
		lastFlush:  time.Now(),
	}
}

// Run processes batches until ctx is cancelled. It checks for
// cancellation between iterations only, never mid-batch: a batch that
// has started storing and counting always finishes, flushes if due,
// and acks before Run observes ctx.Done().
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return w.drainOnShutdown()
		default:
		}

		if err := w.processOnce(ctx); err != nil {
			w.logger.Error("worker: batch processing failed", "error", err)
		}
	}
}

// drainOnShutdown flushes any counts accumulated so far. Messages that
// were stored but never reached this point stay unacked in the queue
// and are redelivered to the next consumer.
func (w *Worker) drainOnShutdown() error {
	if len(w.counts) == 0 {
		return nil
	}
	return w.flush(context.Background())
}

func (w *Worker) processOnce(ctx context.Context) error {
	messages, err := w.queue.Consume(ctx, w.cfg.BatchSize, w.cfg.PollBlock)
	if err != nil {
		return fmt.Errorf("worker: consume: %w", err)
	}

	// Once a batch has been consumed it is carried through to its ack
	// even if ctx is cancelled meanwhile; cancellation only stops the
	// next Consume.
	ctx = context.WithoutCancel(ctx)

	if depth, err := w.queue.Length(ctx); err == nil {
		w.metrics.QueueDepth.Set(float64(depth))
	}

	if len(messages) == 0 {
		_, err := w.maybeFlush(ctx)
		return err
	}

	hits := make([]hitstorage.Hit, 0, len(messages))
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		hits = append(hits, toHit(m.Event))
		ids = append(ids, m.ID)
	}

	if err := w.hitStorage.StoreHits(ctx, hits); err != nil {
		// Stored step failed: don't count, don't ack. The messages
		// stay pending and will be redelivered.
		return fmt.Errorf("worker: store hits: %w", err)
	}

	for _, m := range messages {
		w.counts[m.Event.ShortCode]++
	}
	w.metrics.HitsProcessedTotal.Add(float64(len(messages)))
	w.metrics.BatchesTotal.Inc()

	if attempted, err := w.maybeFlush(ctx); attempted && err != nil {
		// The flush that was supposed to cover this batch's counters
		// failed: withhold the ack. The counts stay in w.counts for the
		// next flush attempt, and these messages are redelivered and
		// recounted — an accepted over-count, not the silent permanent
		// under-count that acking here would cause.
		w.logger.Error("worker: flush failed, withholding ack", "error", err)
		w.metrics.FlushFailuresTotal.Inc()
		return fmt.Errorf("worker: flush failed: %w", err)
	}

	if err := w.queue.Ack(ctx, ids); err != nil {
		return fmt.Errorf("worker: ack: %w", err)
	}

	return nil
}

// maybeFlush flushes if due. attempted reports whether a flush was
// actually attempted, so callers can tell "correctly skipped, not yet
// due" (safe to ack) apart from "attempted and failed" (must not ack).
func (w *Worker) maybeFlush(ctx context.Context) (attempted bool, err error) {
	due := time.Since(w.lastFlush) >= w.cfg.FlushInterval || len(w.counts) >= w.cfg.FlushOnCount
	if !due || len(w.counts) == 0 {
		return false, nil
	}
	return true, w.flush(ctx)
}

// flush commits the accumulated counts to the authoritative store.
// The "updated N urls" log line reports the count captured before the
// map is cleared, not after.
func (w *Worker) flush(ctx context.Context) error {
	pending := w.counts
	updated := len(pending)

	if err := w.store.BatchIncrementHits(ctx, pending); err != nil {
		return fmt.Errorf("worker: batch increment: %w", err)
	}

	w.counts = make(map[string]int64)
	w.lastFlush = time.Now()
	w.logger.Info("updated total_hits", "url_count", updated)
	return nil
}

func toHit(e queue.HitEvent) hitstorage.Hit {
	return hitstorage.Hit{
		ShortCode:  e.ShortCode,
		Timestamp:  e.Timestamp,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		Referer:    e.Referer,
		Country:    e.Country,
		DeviceType: e.DeviceType,
		Browser:    e.Browser,
	}
}
