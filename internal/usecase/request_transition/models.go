package request_transition

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// Request модель запроса на переход статуса
type Request struct {
	AppointmentID int64                 // ID записи
	TargetStatus  domain.DetailedStatus // Целевой детальный статус
	Actor         domain.Actor          // Кто запрашивает переход
	Notes         *string               // Заметки к переходу (опционально)
	Reason        *string               // Причина (для отмен и переносов, опционально)
	Amount        *float64              // Сумма платежа (для перехода в invoiced, опционально)
	RequestID     string                // Идемпотентный ключ запроса (uuid)
}

// Response модель ответа с обновлённой записью
type Response struct {
	ID             int64                 // ID записи
	CustomerID     int64                 // ID клиента
	TechnicianID   *int64                // ID назначенного механика
	DetailedStatus domain.DetailedStatus // Детальный статус после перехода
	CoreStatus     domain.CoreStatus     // Клиентская проекция статуса
	StatusVersion  int64                 // Версия статуса после перехода
	ScheduledAt    time.Time             // Время визита
	Replayed       bool                  // true, если запрос был повтором уже применённого перехода

	UpdatedAt time.Time // Время обновления
}
