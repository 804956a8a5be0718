package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	applogger "SpendLens/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	reqTotal    *prometheus.CounterVec
	reqDuration *prometheus.HistogramVec
	reqInFlight *prometheus.GaugeVec
	respSize    *prometheus.HistogramVec
	httpRegOnce sync.Once
)

func registerHTTPMetrics() {
	httpRegOnce.Do(func() {
		reqTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests served"},
			[]string{"path", "method", "status"},
		)
		reqDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Request duration",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method", "status", "class"},
		)
		reqInFlight = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "http_in_flight_requests", Help: "Requests currently being served"},
			[]string{"route", "method"},
		)
		respSize = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "Response body size",
				Buckets: []float64{200, 500, 1_000, 2_000, 5_000, 10_000, 50_000, 100_000, 500_000, 1_000_000},
			},
			[]string{"route", "method", "status", "class"},
		)
		prometheus.MustRegister(reqTotal, reqDuration, reqInFlight, respSize)
	})
}

// Metrics records request counters, latency and size. Routes are
// already low-cardinality here (fixed API paths), so the URL path is
// a safe label. A non-nil logger additionally gets 5xx responses as
// errors and anything over slowThreshold as a warning.
func Metrics(l *applogger.Logger, slowThreshold time.Duration) func(http.Handler) http.Handler {
	registerHTTPMetrics()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, method := r.URL.Path, r.Method
			reqInFlight.WithLabelValues(route, method).Inc()
			defer reqInFlight.WithLabelValues(route, method).Dec()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			status := strconv.Itoa(rec.status)
			class := fmt.Sprintf("%dxx", rec.status/100)
			reqTotal.WithLabelValues(route, method, status).Inc()
			reqDuration.WithLabelValues(route, method, status, class).Observe(elapsed.Seconds())
			respSize.WithLabelValues(route, method, status, class).Observe(float64(rec.written))

			if l == nil {
				return
			}
			fields := []applogger.Field{
				applogger.String("route", route),
				applogger.String("method", method),
				applogger.String("status", status),
				applogger.Duration("duration_ms", elapsed),
				applogger.Int("bytes", rec.written),
			}
			switch {
			case rec.status >= 500:
				l.Error("http request failed", fields...)
			case slowThreshold > 0 && elapsed >= slowThreshold:
				l.Warn("http request slow", fields...)
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}
