// Package router превращает события workflow в адресные уведомления.
// Маршрутизация чистая: решение зависит только от события, списка
// потенциальных получателей и настроек фильтров.
package router

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

// Заголовки и тексты уведомлений
const (
	msgStatusChangedTitle   = "Статус записи изменён"
	msgStatusChangedBody    = "Запись #%d: %s → %s"
	msgCreatedTitle         = "Новая запись"
	msgCreatedBody          = "Создана запись #%d"
	msgPartsRequestedTitle  = "Запрошены запчасти"
	msgPartsRequestedBody   = "По записи #%d запрошены запчасти"
	msgPaymentReceivedTitle = "Поступила оплата"
	msgPaymentReceivedBody  = "По записи #%d поступила оплата: %.2f"
)

// Config настройки фильтров маршрутизации
type Config struct {
	// Окно, в котором разрешены push для несрочных уведомлений персоналу
	QuietHoursStart types.TimeString
	QuietHoursEnd   types.TimeString

	// Платежи меньше порога не получают push (in-app остаётся)
	PaymentPushThreshold float64

	// Окно дедупликации одинаковых уведомлений
	DedupWindow time.Duration
}

// Router маршрутизатор уведомлений
type Router struct {
	cfg          Config
	dedup        DedupStore
	timeProvider TimeProvider
	logger       Logger
}

// New создает маршрутизатор
func New(cfg Config, dedup DedupStore, logger Logger) *Router {
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = time.Duration(domain.DefaultDedupWindowMinutes) * time.Minute
	}
	return &Router{
		cfg:          cfg,
		dedup:        dedup,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Route возвращает уведомления для получателей, прошедших фильтры:
// причастность, ролевые типы событий, самоисключение, тихие часы,
// порог платежей и дедупликацию
func (r *Router) Route(event domain.Event, recipients []Recipient) []domain.Notification {
	now := r.timeProvider.Now()
	notifications := make([]domain.Notification, 0, len(recipients))

	for _, recipient := range recipients {
		// Актор не уведомляется о собственном действии
		if recipient.ID == event.ActorID {
			continue
		}

		if !r.isAddressee(event, recipient) {
			continue
		}

		// Дедупликация: одно уведомление на (запись, тип, получатель, окно)
		key := dedupKey(event, recipient, r.cfg.DedupWindow)
		if !r.dedup.MarkSeen(key, now) {
			r.logger.Info("Route: duplicate suppressed for recipient=%d event=%s appointment=%d",
				recipient.ID, event.Type, event.AppointmentID)
			continue
		}

		notifications = append(notifications, r.buildNotification(event, recipient, now))
	}

	return notifications
}

// isAddressee проверяет причастность получателя к событию
func (r *Router) isAddressee(event domain.Event, recipient Recipient) bool {
	switch event.Type {
	case domain.EventAppointmentStatusChanged:
		// Участники записи плюс персонал
		if recipient.Role == domain.RoleStaff || recipient.Role == domain.RoleAdmin {
			return true
		}
		if recipient.ID == event.CustomerID {
			return true
		}
		return event.TechnicianID != nil && *event.TechnicianID == recipient.ID
	case domain.EventAppointmentCreated, domain.EventPartsRequested, domain.EventPaymentReceived:
		// Только персонал
		return recipient.Role == domain.RoleStaff || recipient.Role == domain.RoleAdmin
	default:
		return false
	}
}

func (r *Router) buildNotification(event domain.Event, recipient Recipient, now time.Time) domain.Notification {
	n := domain.Notification{
		RecipientID:   recipient.ID,
		Type:          event.Type,
		Priority:      event.Priority,
		AppointmentID: event.AppointmentID,
		Push:          event.Priority == domain.PriorityHigh || event.Priority == domain.PriorityUrgent,
		CreatedAt:     now,
	}

	switch event.Type {
	case domain.EventAppointmentCreated:
		n.Title = msgCreatedTitle
		n.Message = fmt.Sprintf(msgCreatedBody, event.AppointmentID)
	case domain.EventPartsRequested:
		n.Title = msgPartsRequestedTitle
		n.Message = fmt.Sprintf(msgPartsRequestedBody, event.AppointmentID)
		n.Push = true
	case domain.EventPaymentReceived:
		n.Title = msgPaymentReceivedTitle
		n.Message = fmt.Sprintf(msgPaymentReceivedBody, event.AppointmentID, event.Amount)
		n.Push = event.Amount >= r.cfg.PaymentPushThreshold
	default:
		n.Title = msgStatusChangedTitle
		n.Message = fmt.Sprintf(msgStatusChangedBody, event.AppointmentID, event.FromStatus, event.ToStatus)
	}

	// Вне рабочего окна push несрочных уведомлений подавляется,
	// in-app запись остаётся
	if n.Push && event.Priority != domain.PriorityUrgent && !r.withinPushWindow(now) {
		n.Push = false
	}

	return n
}

// withinPushWindow проверяет, попадает ли момент в окно доставки push
func (r *Router) withinPushWindow(now time.Time) bool {
	if r.cfg.QuietHoursStart.IsZero() || r.cfg.QuietHoursEnd.IsZero() {
		return true
	}

	current := types.NewTimeString(now)
	return !current.IsBefore(r.cfg.QuietHoursStart) && current.IsBefore(r.cfg.QuietHoursEnd)
}

func dedupKey(event domain.Event, recipient Recipient, window time.Duration) string {
	bucket := event.OccurredAt.Unix() / int64(window.Seconds())
	return fmt.Sprintf("%d:%s:%d:%d", event.AppointmentID, event.Type, recipient.ID, bucket)
}
