package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records remote operation outcomes and aggregate sizes for the
// cart and wishlist engines. A nil *SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	duration  *prometheus.HistogramVec
	success   *prometheus.CounterVec
	failure   *prometheus.CounterVec
	discarded *prometheus.CounterVec
	items     *prometheus.GaugeVec
	quantity  *prometheus.GaugeVec
}

// NewSyncMetrics registers the engine metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_operation_duration_seconds",
		Help:    "Duration of remote document store operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"engine", "op"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_operation_success",
		Help: "Remote operations that settled successfully.",
	}, []string{"engine", "op"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_operation_failure",
		Help: "Remote operations that settled with an error.",
	}, []string{"engine", "op", "code"})
	discarded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_outcome_discarded",
		Help: "Settled outcomes dropped because the aggregate was reset or closed.",
	}, []string{"engine", "op"})
	items := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sync_aggregate_items",
		Help: "Number of items currently held by the local aggregate.",
	}, []string{"engine"})
	quantity := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sync_aggregate_quantity",
		Help: "Total quantity across items held by the local aggregate.",
	}, []string{"engine"})
	reg.MustRegister(duration, success, failure, discarded, items, quantity)
	return &SyncMetrics{
		duration:  duration,
		success:   success,
		failure:   failure,
		discarded: discarded,
		items:     items,
		quantity:  quantity,
	}
}

// ObserveDuration records how long a remote operation took.
func (m *SyncMetrics) ObserveDuration(engine, op string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(engine), normalizeLabel(op)).Observe(duration.Seconds())
}

func (m *SyncMetrics) IncSuccess(engine, op string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(engine), normalizeLabel(op)).Inc()
}

func (m *SyncMetrics) IncFailure(engine, op, code string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(engine), normalizeLabel(op), normalizeLabel(code)).Inc()
}

func (m *SyncMetrics) IncDiscarded(engine, op string) {
	if m == nil || m.discarded == nil {
		return
	}
	m.discarded.WithLabelValues(normalizeLabel(engine), normalizeLabel(op)).Inc()
}

// SetAggregate publishes the current item count and total quantity.
func (m *SyncMetrics) SetAggregate(engine string, items, quantity int) {
	if m == nil || m.items == nil {
		return
	}
	m.items.WithLabelValues(normalizeLabel(engine)).Set(float64(items))
	m.quantity.WithLabelValues(normalizeLabel(engine)).Set(float64(quantity))
}

// SetItems publishes the item count for aggregates without quantities.
func (m *SyncMetrics) SetItems(engine string, items int) {
	if m == nil || m.items == nil {
		return
	}
	m.items.WithLabelValues(normalizeLabel(engine)).Set(float64(items))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
