package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for import runs.
// Tracks row outcomes per feed, sealed batches and outbox relay health.
type Metrics struct {
	RowsProcessed   *prometheus.CounterVec
	DuplicateRows   *prometheus.CounterVec
	BatchesSealed   *prometheus.CounterVec
	RowDuration     prometheus.Histogram
	BatchDuration   prometheus.Histogram
	OutboxPublished prometheus.Counter
	OutboxFailures  prometheus.Counter
	OutboxBacklog   prometheus.Gauge
}

// New registers import metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers import metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RowsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trs_import_rows_total",
			Help: "Rows recorded by import runs, by feed and row status",
		}, []string{"feed", "status"}),
		DuplicateRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trs_import_duplicate_rows_total",
			Help: "Rows flagged as potential duplicates, by feed",
		}, []string{"feed"}),
		BatchesSealed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trs_import_batches_sealed_total",
			Help: "Batches sealed, by feed and final status",
		}, []string{"feed", "status"}),
		RowDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "trs_import_row_duration_seconds",
			Help:    "Duration of one row from validation to recorded outcome",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "trs_import_batch_duration_seconds",
			Help:    "Duration of a batch run from begin to seal",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
		}),
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "trs_outbox_published_total",
			Help: "Outbox entries published to the broker",
		}),
		OutboxFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "trs_outbox_publish_failures_total",
			Help: "Outbox relay cycles that failed to publish",
		}),
		OutboxBacklog: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trs_outbox_backlog",
			Help: "Unpublished outbox entries seen by the last relay cycle",
		}),
	}
}

// IncrementRow records one recorded row outcome.
func (m *Metrics) IncrementRow(feed, status string, duplicate bool) {
	m.RowsProcessed.WithLabelValues(feed, status).Inc()
	if duplicate {
		m.DuplicateRows.WithLabelValues(feed).Inc()
	}
}

// IncrementSealed records a sealed batch.
func (m *Metrics) IncrementSealed(feed, status string) {
	m.BatchesSealed.WithLabelValues(feed, status).Inc()
}

// ObserveRow records the duration of a row.
// Call with time.Now() at the start of the row.
func (m *Metrics) ObserveRow(start time.Time) {
	m.RowDuration.Observe(time.Since(start).Seconds())
}

// ObserveBatch records the duration of a batch run.
func (m *Metrics) ObserveBatch(start time.Time) {
	m.BatchDuration.Observe(time.Since(start).Seconds())
}

// ObserveRelay records one relay cycle.
func (m *Metrics) ObserveRelay(published, backlog int, failed bool) {
	m.OutboxPublished.Add(float64(published))
	m.OutboxBacklog.Set(float64(backlog))
	if failed {
		m.OutboxFailures.Inc()
	}
}
