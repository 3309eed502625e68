package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streakline/internal/metrics"
)

func TestOpCounters(t *testing.T) {
	m := metrics.New()
	m.Op("create", nil)
	m.Op("create", nil)
	m.Op("delete", errors.New("boom"))
	m.Registration("fulfilled")
	m.Completed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("delete", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Registrations.WithLabelValues("fulfilled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Completions))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.Op("create", nil)
	m.Registration("failed")
	m.Completed()
	m.StoreReset()
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/challenges/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/challenges/7", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/challenges/8", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/challenges/{id}", http.MethodGet, "Not Found")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "streakline_http_requests_total"))
}
