package obs

import "github.com/prometheus/client_golang/prometheus"

// WorkerMetrics are the counters/gauges the hit worker reports.
type WorkerMetrics struct {
	BatchesTotal       prometheus.Counter
	FlushFailuresTotal prometheus.Counter
	QueueDepth         prometheus.Gauge
	HitsProcessedTotal prometheus.Counter
}

// NewWorkerMetrics registers and returns the worker's collectors
// against reg. Passing a fresh prometheus.NewRegistry() in tests keeps
// registrations isolated between test cases.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	m := &WorkerMetrics{
		BatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hit_worker_batches_total",
			Help: "Number of hit batches processed by the worker.",
		}),
		FlushFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hit_worker_flush_failures_total",
			Help: "Number of total_hits flushes to the authoritative store that failed.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hit_worker_queue_depth",
			Help: "Most recently observed queue depth.",
		}),
		HitsProcessedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hit_worker_hits_processed_total",
			Help: "Number of individual hit events processed by the worker.",
		}),
	}
	reg.MustRegister(m.BatchesTotal, m.FlushFailuresTotal, m.QueueDepth, m.HitsProcessedTotal)
	return m
}
