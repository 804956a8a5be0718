package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	InsightLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spendlens",
			Subsystem: "insights",
			Name:      "latency_seconds",
			Help:      "Latency of insight endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	InsightErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spendlens",
			Subsystem: "insights",
			Name:      "errors_total",
			Help:      "Errors by insight endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(InsightLatency, InsightErrors)
	})
}
