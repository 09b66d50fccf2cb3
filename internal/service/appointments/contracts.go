package appointments

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/workflow/permissions"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	GetByUserID(ctx context.Context, userID int64, status *domain.DetailedStatus) ([]*domain.Appointment, error)
	GetWithFilter(ctx context.Context, filter domain.WorkshopFilter) ([]*domain.Appointment, error)
	GetHistory(ctx context.Context, appointmentID int64) ([]*domain.HistoryEntry, error)
}

// PermissionPolicy интерфейс политики клиентских временных окон
type PermissionPolicy interface {
	Check(appt *domain.Appointment, action permissions.Action, now time.Time) permissions.Decision
}

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
