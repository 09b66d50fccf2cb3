package models

import (
	"errors"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/workflow/statusmodel"
)

var (
	// ErrInvalidStatus возвращается при некорректном статусе
	ErrInvalidStatus = errors.New("invalid appointment status")
)

// Request модели

// GetUserAppointmentsRequest запрос на получение записей пользователя
type GetUserAppointmentsRequest struct {
	UserID int64   `json:"userId"`
	Status *string `json:"status,omitempty"`
}

// GetWorkshopAppointmentsRequest запрос на получение записей мастерской
type GetWorkshopAppointmentsRequest struct {
	TechnicianID  *int64     `json:"technicianId,omitempty"` // Фильтр по механику (опционально)
	StartDate     *time.Time `json:"startDate,omitempty"`    // Начало периода (опционально)
	EndDate       *time.Time `json:"endDate,omitempty"`      // Конец периода (опционально)
	Status        *string    `json:"status,omitempty"`       // Фильтр по статусу (опционально)
	IncludeClosed bool       `json:"includeClosed,omitempty"`
}

// ToDomainFilter конвертирует request в domain фильтр
func (r *GetWorkshopAppointmentsRequest) ToDomainFilter() (domain.WorkshopFilter, error) {
	filter := domain.WorkshopFilter{
		TechnicianID:  r.TechnicianID,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		IncludeClosed: r.IncludeClosed,
	}

	if r.Status != nil {
		status, err := ToDomainStatus(*r.Status)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}

	return filter, nil
}

// Response модели

// AppointmentResponse ответ с данными записи
type AppointmentResponse struct {
	ID             int64  `json:"id"`
	CustomerID     int64  `json:"customerId"`
	TechnicianID   *int64 `json:"technicianId,omitempty"`
	ServiceName    string `json:"serviceName"`
	DetailedStatus string `json:"detailedStatus"`
	CoreStatus     string `json:"coreStatus"`
	ScheduledAt    time.Time `json:"scheduledAt"`
	Priority       string `json:"priority"`

	RescheduleCount int   `json:"rescheduleCount"`
	StatusVersion   int64 `json:"statusVersion"`

	// Денормализованные данные автомобиля
	VehicleBrand        *string `json:"vehicleBrand,omitempty"`
	VehicleModel        *string `json:"vehicleModel,omitempty"`
	VehicleLicensePlate *string `json:"vehicleLicensePlate,omitempty"`
	Notes               *string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AppointmentListResponse ответ со списком записей
type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
}

// HistoryEntryResponse одна строка журнала статусов
type HistoryEntryResponse struct {
	Status    string    `json:"status"`
	ActorID   int64     `json:"actorId"`
	ActorRole string    `json:"actorRole"`
	Notes     *string   `json:"notes,omitempty"`
	Reason    *string   `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryResponse журнал статусов записи
type HistoryResponse struct {
	AppointmentID int64                  `json:"appointmentId"`
	Entries       []HistoryEntryResponse `json:"entries"`
}

// ActionDecision решение политики для клиентского действия
type ActionDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// AvailableActionsResponse доступные переходы и клиентские действия
type AvailableActionsResponse struct {
	AppointmentID   int64                     `json:"appointmentId"`
	CurrentStatus   string                    `json:"currentStatus"`
	NextStatuses    []string                  `json:"nextStatuses"`
	CustomerActions map[string]ActionDecision `json:"customerActions,omitempty"`
}

// PermissionResponse результат проверки одного действия
type PermissionResponse struct {
	AppointmentID int64  `json:"appointmentId"`
	Action        string `json:"action"`
	Allowed       bool   `json:"allowed"`
	Reason        string `json:"reason,omitempty"`
}

// Методы конвертации

// FromDomainAppointment конвертирует domain модель в DTO
func FromDomainAppointment(a *domain.Appointment) *AppointmentResponse {
	if a == nil {
		return nil
	}

	return &AppointmentResponse{
		ID:                  a.ID,
		CustomerID:          a.CustomerID,
		TechnicianID:        a.TechnicianID,
		ServiceName:         a.ServiceName,
		DetailedStatus:      string(a.DetailedStatus),
		CoreStatus:          string(statusmodel.CoarseStatus(a.DetailedStatus)),
		ScheduledAt:         a.ScheduledAt,
		Priority:            string(a.Priority),
		RescheduleCount:     a.RescheduleCount,
		StatusVersion:       a.StatusVersion,
		VehicleBrand:        a.VehicleBrand,
		VehicleModel:        a.VehicleModel,
		VehicleLicensePlate: a.VehicleLicensePlate,
		Notes:               a.Notes,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

// FromDomainAppointmentList конвертирует список domain моделей в DTO
func FromDomainAppointmentList(appointments []*domain.Appointment) *AppointmentListResponse {
	resp := &AppointmentListResponse{
		Appointments: make([]AppointmentResponse, 0, len(appointments)),
	}

	for _, appt := range appointments {
		if apptResp := FromDomainAppointment(appt); apptResp != nil {
			resp.Appointments = append(resp.Appointments, *apptResp)
		}
	}

	return resp
}

// FromDomainHistory конвертирует журнал статусов в DTO
func FromDomainHistory(appointmentID int64, entries []*domain.HistoryEntry) *HistoryResponse {
	resp := &HistoryResponse{
		AppointmentID: appointmentID,
		Entries:       make([]HistoryEntryResponse, 0, len(entries)),
	}

	for _, e := range entries {
		resp.Entries = append(resp.Entries, HistoryEntryResponse{
			Status:    string(e.Status),
			ActorID:   e.ActorID,
			ActorRole: string(e.ActorRole),
			Notes:     e.Notes,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt,
		})
	}

	return resp
}

// ToDomainStatus конвертирует строку в domain.DetailedStatus с валидацией
func ToDomainStatus(status string) (domain.DetailedStatus, error) {
	s := domain.DetailedStatus(status)
	if !statusmodel.IsKnownStatus(s) {
		return "", ErrInvalidStatus
	}
	return s, nil
}
