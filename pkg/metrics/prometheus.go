package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ingested    *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	anomalies   *prometheus.CounterVec
	recurring   *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ingested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendlens_transactions_ingested_total",
				Help: "Total number of transactions accepted for storage",
			},
			[]string{"source"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendlens_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		anomalies: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendlens_anomalies_detected_total",
				Help: "Anomaly findings produced by scans",
			},
			[]string{"type"},
		),
		recurring: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "spendlens_recurring_payments",
				Help: "Recurring payments found by the latest scan",
			},
			[]string{"frequency", "status"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spendlens_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordIngested counts transactions accepted from a source.
func (r *Recorder) RecordIngested(source string, n int) {
	r.ingested.WithLabelValues(source).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordAnomaly counts one anomaly finding by type.
func (r *Recorder) RecordAnomaly(kind string) {
	r.anomalies.WithLabelValues(kind).Inc()
}

// SetRecurring reports the size of the latest recurring result set.
func (r *Recorder) SetRecurring(frequency, status string, n int) {
	r.recurring.WithLabelValues(frequency, status).Set(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
