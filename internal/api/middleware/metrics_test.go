package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/pkg/metrics"
)

// prometheus-коллектор сервиса обязан подходить под интерфейс прослойки
var _ MetricsCollector = (*metrics.Metrics)(nil)

type recordedRequest struct {
	method   string
	path     string
	status   int
	duration time.Duration
}

type fakeCollector struct {
	requests []recordedRequest
}

func (c *fakeCollector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.requests = append(c.requests, recordedRequest{method: method, path: path, status: status, duration: duration})
}

func TestMetricsMiddleware_RecordsRouteTemplate(t *testing.T) {
	collector := &fakeCollector{}

	r := mux.NewRouter()
	r.Use(MetricsMiddleware(collector, "test-service"))
	r.HandleFunc("/api/v1/appointments/{appointmentId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodGet)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/appointments/42", nil))

	require.Len(t, collector.requests, 1)
	got := collector.requests[0]
	assert.Equal(t, http.MethodGet, got.method)
	// в метку уходит шаблон маршрута, а не сырой URL
	assert.Equal(t, "/api/v1/appointments/{appointmentId}", got.path)
	assert.Equal(t, http.StatusNotFound, got.status)
}

func TestMetricsMiddleware_DefaultStatusOK(t *testing.T) {
	collector := &fakeCollector{}

	r := mux.NewRouter()
	r.Use(MetricsMiddleware(collector, "test-service"))
	r.HandleFunc("/api/v1/appointments", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}).Methods(http.MethodPost)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/appointments", nil))

	require.Len(t, collector.requests, 1)
	assert.Equal(t, http.StatusOK, collector.requests[0].status)
}
