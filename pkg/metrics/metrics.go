package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics набор prometheus-коллекторов сервиса
// Регистрируется в DefaultRegisterer при создании
type Metrics struct {
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	dbQueriesTotal       *prometheus.CounterVec
	dbQueryDuration      *prometheus.HistogramVec
	dbPoolOpenConns      *prometheus.GaugeVec
	dbPoolIdleConns      *prometheus.GaugeVec
	dbPoolInUseConns     *prometheus.GaugeVec
	transitionsTotal     *prometheus.CounterVec
	notificationsRouted  *prometheus.CounterVec
	wsConnectionsActive  *prometheus.GaugeVec
	eventsDispatched     *prometheus.CounterVec
}

// New создает и регистрирует коллекторы
func New(serviceName string) *Metrics {
	constLabels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),

		httpRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "path"}),

		dbQueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "db_queries_total",
			Help:        "Total number of database queries",
			ConstLabels: constLabels,
		}, []string{"operation", "result"}),

		dbQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "db_query_duration_seconds",
			Help:        "Database query duration in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"operation"}),

		dbPoolOpenConns: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "db_pool_open_connections",
			Help:        "Number of open connections in the pool",
			ConstLabels: constLabels,
		}, []string{"db"}),

		dbPoolIdleConns: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "db_pool_idle_connections",
			Help:        "Number of idle connections in the pool",
			ConstLabels: constLabels,
		}, []string{"db"}),

		dbPoolInUseConns: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "db_pool_in_use_connections",
			Help:        "Number of connections currently in use",
			ConstLabels: constLabels,
		}, []string{"db"}),

		transitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "workflow_transitions_total",
			Help:        "Total number of appointment status transitions",
			ConstLabels: constLabels,
		}, []string{"from", "to", "result"}),

		notificationsRouted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "notifications_routed_total",
			Help:        "Total number of notifications produced by the event router",
			ConstLabels: constLabels,
		}, []string{"type", "result"}),

		wsConnectionsActive: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "ws_connections_active",
			Help:        "Number of active websocket connections",
			ConstLabels: constLabels,
		}, []string{"role"}),

		eventsDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "events_dispatched_total",
			Help:        "Total number of events pushed through the dispatcher",
			ConstLabels: constLabels,
		}, []string{"type"}),
	}
}

// RecordHTTPRequest фиксирует завершенный HTTP-запрос
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDBQuery фиксирует выполненный запрос к БД
func (m *Metrics) RecordDBQuery(operation string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.dbQueriesTotal.WithLabelValues(operation, result).Inc()
	m.dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetDBPoolStats обновляет gauge-метрики пула соединений
func (m *Metrics) SetDBPoolStats(dbName string, open, idle, inUse int) {
	m.dbPoolOpenConns.WithLabelValues(dbName).Set(float64(open))
	m.dbPoolIdleConns.WithLabelValues(dbName).Set(float64(idle))
	m.dbPoolInUseConns.WithLabelValues(dbName).Set(float64(inUse))
}

// RecordTransition фиксирует попытку перехода статуса
func (m *Metrics) RecordTransition(from, to, result string) {
	m.transitionsTotal.WithLabelValues(from, to, result).Inc()
}

// RecordNotification фиксирует результат маршрутизации уведомления
func (m *Metrics) RecordNotification(eventType, result string) {
	m.notificationsRouted.WithLabelValues(eventType, result).Inc()
}

// WSConnectionOpened увеличивает счетчик активных websocket-соединений
func (m *Metrics) WSConnectionOpened(role string) {
	m.wsConnectionsActive.WithLabelValues(role).Inc()
}

// WSConnectionClosed уменьшает счетчик активных websocket-соединений
func (m *Metrics) WSConnectionClosed(role string) {
	m.wsConnectionsActive.WithLabelValues(role).Dec()
}

// RecordEventDispatched фиксирует событие, прошедшее через dispatcher
func (m *Metrics) RecordEventDispatched(eventType string) {
	m.eventsDispatched.WithLabelValues(eventType).Inc()
}
