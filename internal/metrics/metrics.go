// Package metrics holds the Prometheus collectors for engine operations and
// the HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Registry *prometheus.Registry

	Operations      *prometheus.CounterVec
	Registrations   *prometheus.CounterVec
	Completions     prometheus.Counter
	StoreResets     prometheus.Counter
	HTTPRequests    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New builds the collectors on a private registry so tests and multiple
// engines never collide on the global one.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streakline_operations_total",
				Help: "Engine operations by name and result",
			},
			[]string{"op", "result"},
		),
		Registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streakline_progress_registrations_total",
				Help: "Progress registrations by outcome (fulfilled, failed, supplementary)",
			},
			[]string{"outcome"},
		),
		Completions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streakline_challenges_completed_total",
			Help: "Challenges that reached their duration in fulfilled days",
		}),
		StoreResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streakline_store_corrupt_resets_total",
			Help: "Times a corrupt store was reset to an empty list",
		}),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streakline_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "streakline_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
	m.Registry.MustRegister(
		m.Operations,
		m.Registrations,
		m.Completions,
		m.StoreResets,
		m.HTTPRequests,
		m.RequestDuration,
	)
	return m
}

// Op records the outcome of an engine operation. A nil receiver is a no-op.
func (m *Metrics) Op(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Registration(outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Completed() {
	if m == nil {
		return
	}
	m.Completions.Inc()
}

func (m *Metrics) StoreReset() {
	if m == nil {
		return
	}
	m.StoreResets.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware counts requests by chi route pattern so ids in paths do not
// explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.HTTPRequests.WithLabelValues(route, r.Method, http.StatusText(ww.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
