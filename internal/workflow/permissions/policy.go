// Package permissions реализует клиентскую политику временных окон:
// когда клиент ещё может перенести или отменить свою запись.
// Политика чистая: решение зависит только от записи, действия и момента времени.
package permissions

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/workflow/statusmodel"
)

// Action клиентское действие, проверяемое политикой
type Action string

const (
	ActionReschedule Action = "reschedule"
	ActionCancel     Action = "cancel"
)

// IsValid возвращает true для известного действия
func (a Action) IsValid() bool {
	return a == ActionReschedule || a == ActionCancel
}

// Причины отказа (попадают в ответ API как machine-readable код)
const (
	ReasonTerminalStatus     = "appointment_closed"
	ReasonWindowExpired      = "time_window_expired"
	ReasonRescheduleLimit    = "reschedule_limit_reached"
	ReasonUnknownAction      = "unknown_action"
)

// Decision результат проверки: разрешено или причина отказа
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Config настройки временных окон политики
type Config struct {
	RescheduleMinHours int // минимум часов до начала для переноса
	CancelMinHours     int // минимум часов до начала для отмены
	MaxRescheduleCount int // лимит переносов, 0 = без лимита
}

// DefaultConfig значения по умолчанию
func DefaultConfig() Config {
	return Config{
		RescheduleMinHours: domain.DefaultRescheduleMinHours,
		CancelMinHours:     domain.DefaultCancelMinHours,
		MaxRescheduleCount: domain.DefaultMaxRescheduleCount,
	}
}

// Policy проверяет клиентские действия против временных окон
type Policy struct {
	cfg Config
}

// NewPolicy создает политику с указанными окнами
func NewPolicy(cfg Config) *Policy {
	return &Policy{cfg: cfg}
}

// Check проверяет, может ли клиент выполнить действие над записью в момент now.
// Ровно на границе окна (до начала осталось ровно N часов) действие ещё разрешено.
func (p *Policy) Check(appt *domain.Appointment, action Action, now time.Time) Decision {
	if !action.IsValid() {
		return deny(ReasonUnknownAction)
	}

	if statusmodel.IsTerminal(appt.DetailedStatus) || appt.DetailedStatus == domain.StatusCompleted {
		return deny(ReasonTerminalStatus)
	}

	hoursUntil := appt.ScheduledAt.Sub(now).Hours()

	switch action {
	case ActionReschedule:
		if p.cfg.MaxRescheduleCount > 0 && appt.RescheduleCount >= p.cfg.MaxRescheduleCount {
			return deny(ReasonRescheduleLimit)
		}
		if hoursUntil < float64(p.cfg.RescheduleMinHours) {
			return deny(ReasonWindowExpired)
		}
	case ActionCancel:
		if hoursUntil < float64(p.cfg.CancelMinHours) {
			return deny(ReasonWindowExpired)
		}
	}

	return allow()
}
