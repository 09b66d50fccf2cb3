package request_transition

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/workflow/permissions"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, from, to domain.DetailedStatus, version int64, incrementReschedule, incrementNoShow bool) error
	AppendHistory(ctx context.Context, entry *domain.HistoryEntry) (*domain.HistoryEntry, error)
	GetLatestHistory(ctx context.Context, appointmentID int64) (*domain.HistoryEntry, error)
	GetLatestHistoryByStatus(ctx context.Context, appointmentID int64, status domain.DetailedStatus) (*domain.HistoryEntry, error)
}

// PermissionPolicy интерфейс политики клиентских временных окон
type PermissionPolicy interface {
	Check(appt *domain.Appointment, action permissions.Action, now time.Time) permissions.Decision
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventEmitter принимает события после успешного коммита перехода
type EventEmitter interface {
	Emit(event domain.Event)
}

// MetricsRecorder счётчик попыток переходов
type MetricsRecorder interface {
	RecordTransition(from, to, result string)
}

// NopMetrics заглушка, когда сбор метрик выключен
type NopMetrics struct{}

func (NopMetrics) RecordTransition(from, to, result string) {}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
