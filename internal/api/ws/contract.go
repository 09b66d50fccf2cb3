package ws

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/events/registry"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments/models"
)

// SessionRegistry интерфейс реестра realtime-подключений
type SessionRegistry interface {
	Connect(identity registry.Identity, conn registry.Conn) *registry.Session
	Disconnect(session *registry.Session)
	Join(session *registry.Session, room string)
	Leave(session *registry.Session, room string)
}

// AccessChecker проверяет право пользователя видеть запись.
// Используется при подписке на комнату записи
type AccessChecker interface {
	GetByID(ctx context.Context, appointmentID int64, actor domain.Actor) (*models.AppointmentResponse, error)
}

// MetricsRecorder интерфейс для метрик подключений
type MetricsRecorder interface {
	WSConnectionOpened(role string)
	WSConnectionClosed(role string)
}

// NopMetrics заглушка для окружений без метрик
type NopMetrics struct{}

func (NopMetrics) WSConnectionOpened(role string) {}
func (NopMetrics) WSConnectionClosed(role string) {}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
