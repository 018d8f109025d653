package providers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingMetrics struct {
	endpoints []string
	statuses  []int
	durations int
}

func (m *recordingMetrics) IncRequestsTotal(endpoint string, status int) {
	m.endpoints = append(m.endpoints, endpoint)
	m.statuses = append(m.statuses, status)
}
func (m *recordingMetrics) ObserveRequestDuration(_ string, _ time.Duration) { m.durations++ }
func (m *recordingMetrics) IncCacheHits()                                    {}
func (m *recordingMetrics) IncCacheMisses()                                  {}
func (m *recordingMetrics) SetRunTotals(_, _ int64)                          {}

func TestMetricsMiddleware_RecordsStatus(t *testing.T) {
	metrics := &recordingMetrics{}
	handler := MetricsMiddleware(metrics, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, []string{"/api/summary"}, metrics.endpoints)
	assert.Equal(t, []int{http.StatusNotFound}, metrics.statuses)
	assert.Equal(t, 1, metrics.durations)
}

func TestMetricsMiddleware_DefaultsTo200(t *testing.T) {
	metrics := &recordingMetrics{}
	handler := MetricsMiddleware(metrics, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []int{http.StatusOK}, metrics.statuses)
}

func TestHttpStatusBucket(t *testing.T) {
	assert.Equal(t, "2xx", httpStatusBucket(204))
	assert.Equal(t, "3xx", httpStatusBucket(301))
	assert.Equal(t, "4xx", httpStatusBucket(404))
	assert.Equal(t, "5xx", httpStatusBucket(500))
	assert.Equal(t, "1xx", httpStatusBucket(101))
}

func TestRouterProvider_MethodGuard(t *testing.T) {
	router := NewRouterProvider()
	router.Get("/x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	routes := router.GetRoutes()
	assert.Len(t, routes, 1)

	rec := httptest.NewRecorder()
	routes[0].Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	routes[0].Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
