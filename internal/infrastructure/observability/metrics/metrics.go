// Package metrics holds the Prometheus collectors of the console.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreschagin/deploy-board/internal/domain/series"
)

// Metrics bundles prometheus collectors used by the console.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	MetricFetches      *prometheus.CounterVec
	BackendErrors      *prometheus.CounterVec
	RateLimitDropped   prometheus.Counter
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deployboard_requests_total",
			Help: "Total number of console HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "deployboard_request_duration_seconds",
			Help:    "Console request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		MetricFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deployboard_metric_fetch_total",
			Help: "Metric source fetches by kind and outcome.",
		}, []string{"kind", "status"}),
		BackendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deployboard_backend_errors_total",
			Help: "Deploy backend calls answered with an error, by HTTP status.",
		}, []string{"status"}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deployboard_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.MetricFetches,
		m.BackendErrors,
		m.RateLimitDropped,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordFetch counts one metric source fetch.
func (m *Metrics) RecordFetch(kind string, status series.Status) {
	m.MetricFetches.WithLabelValues(kind, string(status)).Inc()
}

// RecordBackendError counts one failed deploy backend call; status 0
// stands for a transport failure.
func (m *Metrics) RecordBackendError(status int) {
	m.BackendErrors.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *Metrics) RecordRateLimitDrop() {
	m.RateLimitDropped.Inc()
}

// Middleware records request count and latency labelled by the matched
// route pattern, so path parameters do not blow up label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := routeLabel(r)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "other"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
