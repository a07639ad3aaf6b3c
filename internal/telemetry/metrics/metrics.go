package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds every metric kvs-server exposes, grouped the same way the
// teacher's telemetry/metric.Registry groups session/request/storage
// metrics, but for the engine and server instead of the session store.
type Registry struct {
	UncompactedBytes prometheus.Gauge
	CompactionsTotal prometheus.Counter
	RequestsTotal    *prometheus.CounterVec
	PoolQueueDepth   prometheus.Gauge
}

// NewRegistry builds a Registry and registers every metric with reg.
func NewRegistry(reg *prometheus.Registry) *Registry {
	r := &Registry{
		UncompactedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kvs",
			Name:      "uncompacted_bytes",
			Help:      "Stale bytes in the log not yet reclaimed by compaction.",
		}),
		CompactionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kvs",
			Name:      "compactions_total",
			Help:      "Total number of completed compactions.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvs",
			Name:      "requests_total",
			Help:      "Total requests handled, by operation and result.",
		}, []string{"op", "result"}),
		PoolQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kvs",
			Name:      "pool_queue_depth",
			Help:      "Number of tasks currently queued in the thread pool.",
		}),
	}

	reg.MustRegister(r.UncompactedBytes, r.CompactionsTotal, r.RequestsTotal, r.PoolQueueDepth)
	return r
}

// ObserveRequest records the outcome of one dispatched request.
func (r *Registry) ObserveRequest(op string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.RequestsTotal.WithLabelValues(op, result).Inc()
}

// ObserveStats updates gauge values from a point-in-time engine snapshot.
func (r *Registry) ObserveStats(uncompacted int64) {
	if r == nil {
		return
	}
	r.UncompactedBytes.Set(float64(uncompacted))
}

// ObserveCompaction records that a compaction completed.
func (r *Registry) ObserveCompaction() {
	if r == nil {
		return
	}
	r.CompactionsTotal.Inc()
}

// ObserveQueueDepth updates the thread pool queue depth gauge.
func (r *Registry) ObserveQueueDepth(n int) {
	if r == nil {
		return
	}
	r.PoolQueueDepth.Set(float64(n))
}
