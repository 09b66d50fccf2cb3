package create_appointment

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// Request модель запроса на создание записи
type Request struct {
	Actor        domain.Actor // Кто создает запись (клиент или сотрудник)
	CustomerID   int64        // ID клиента (для клиента совпадает с актором)
	TechnicianID *int64       // ID назначаемого механика (опционально)
	ServiceName  string       // Название услуги
	ScheduledAt  time.Time    // Время визита
	Priority     *string      // Приоритет (опционально, по умолчанию normal)

	// Данные автомобиля (денормализуются в запись)
	VehicleBrand        *string
	VehicleModel        *string
	VehicleLicensePlate *string

	Notes *string // Дополнительные заметки (опционально)
}

// Response модель ответа с созданной записью
type Response struct {
	ID             int64                 // ID созданной записи
	CustomerID     int64                 // ID клиента
	TechnicianID   *int64                // ID назначенного механика
	ServiceName    string                // Название услуги
	DetailedStatus domain.DetailedStatus // Детальный статус (pending)
	CoreStatus     domain.CoreStatus     // Клиентская проекция статуса
	ScheduledAt    time.Time             // Время визита
	Priority       domain.Priority       // Приоритет

	// Денормализованные данные автомобиля
	VehicleBrand        *string
	VehicleModel        *string
	VehicleLicensePlate *string
	Notes               *string

	CreatedAt time.Time // Время создания
	UpdatedAt time.Time // Время обновления
}
