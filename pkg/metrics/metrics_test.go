package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest_StatusLabel(t *testing.T) {
	m := New("test-service")

	m.RecordHTTPRequest(http.MethodGet, "/api/v1/appointments/{appointmentId}", http.StatusConflict, 15*time.Millisecond)
	m.RecordHTTPRequest(http.MethodGet, "/api/v1/appointments/{appointmentId}", http.StatusConflict, 5*time.Millisecond)
	m.RecordHTTPRequest(http.MethodPost, "/api/v1/appointments", http.StatusCreated, time.Millisecond)

	// числовой статус попадает в метку в десятичной записи
	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/appointments/{appointmentId}", "409")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.httpRequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/appointments", "201")))
}

func TestRecordTransition(t *testing.T) {
	m := New("test-service-transitions")

	m.RecordTransition("pending", "confirmed", "success")
	m.RecordTransition("pending", "confirmed", "success")
	m.RecordTransition("pending", "invoiced", "forbidden")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("pending", "confirmed", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("pending", "invoiced", "forbidden")))
}
