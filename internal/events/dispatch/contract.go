package dispatch

import (
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/events/registry"
	"github.com/m04kA/SMC-AppointmentService/internal/events/router"
)

// ConnectionRegistry интерфейс реестра realtime-подключений
type ConnectionRegistry interface {
	Online() []registry.Identity
	Broadcast(room string, data []byte) int
	Unicast(userID int64, data []byte) int
}

// NotificationRouter интерфейс маршрутизатора уведомлений
type NotificationRouter interface {
	Route(event domain.Event, recipients []router.Recipient) []domain.Notification
}

// MetricsRecorder интерфейс для метрик диспетчеризации
type MetricsRecorder interface {
	RecordEventDispatched(eventType string)
	RecordNotification(eventType, result string)
}

// NopMetrics заглушка для окружений без метрик
type NopMetrics struct{}

func (NopMetrics) RecordEventDispatched(eventType string) {}

func (NopMetrics) RecordNotification(eventType, result string) {}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
