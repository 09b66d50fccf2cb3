package create_appointment

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	createAppointment "github.com/m04kA/SMC-AppointmentService/internal/usecase/create_appointment"
)

// CreateAppointmentRequest HTTP request model
type CreateAppointmentRequest struct {
	CustomerID   int64   `json:"customerId"`
	TechnicianID *int64  `json:"technicianId,omitempty"`
	ServiceName  string  `json:"serviceName"`
	ScheduledAt  string  `json:"scheduledAt"` // RFC3339
	Priority     *string `json:"priority,omitempty"`

	VehicleBrand        *string `json:"vehicleBrand,omitempty"`
	VehicleModel        *string `json:"vehicleModel,omitempty"`
	VehicleLicensePlate *string `json:"vehicleLicensePlate,omitempty"`

	Notes *string `json:"notes,omitempty"`
}

// AppointmentResponse HTTP response model
type AppointmentResponse struct {
	ID             int64  `json:"id"`
	CustomerID     int64  `json:"customerId"`
	TechnicianID   *int64 `json:"technicianId,omitempty"`
	ServiceName    string `json:"serviceName"`
	DetailedStatus string `json:"detailedStatus"`
	CoreStatus     string `json:"coreStatus"`
	ScheduledAt    string `json:"scheduledAt"`
	Priority       string `json:"priority"`

	VehicleBrand        *string `json:"vehicleBrand,omitempty"`
	VehicleModel        *string `json:"vehicleModel,omitempty"`
	VehicleLicensePlate *string `json:"vehicleLicensePlate,omitempty"`
	Notes               *string `json:"notes,omitempty"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *CreateAppointmentRequest) ToUseCaseRequest(actor domain.Actor) (*createAppointment.Request, error) {
	scheduledAt, err := time.Parse(time.RFC3339, r.ScheduledAt)
	if err != nil {
		return nil, err
	}

	return &createAppointment.Request{
		Actor:               actor,
		CustomerID:          r.CustomerID,
		TechnicianID:        r.TechnicianID,
		ServiceName:         r.ServiceName,
		ScheduledAt:         scheduledAt,
		Priority:            r.Priority,
		VehicleBrand:        r.VehicleBrand,
		VehicleModel:        r.VehicleModel,
		VehicleLicensePlate: r.VehicleLicensePlate,
		Notes:               r.Notes,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *createAppointment.Response) *AppointmentResponse {
	return &AppointmentResponse{
		ID:                  resp.ID,
		CustomerID:          resp.CustomerID,
		TechnicianID:        resp.TechnicianID,
		ServiceName:         resp.ServiceName,
		DetailedStatus:      string(resp.DetailedStatus),
		CoreStatus:          string(resp.CoreStatus),
		ScheduledAt:         resp.ScheduledAt.Format(time.RFC3339),
		Priority:            string(resp.Priority),
		VehicleBrand:        resp.VehicleBrand,
		VehicleModel:        resp.VehicleModel,
		VehicleLicensePlate: resp.VehicleLicensePlate,
		Notes:               resp.Notes,
		CreatedAt:           resp.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           resp.UpdatedAt.Format(time.RFC3339),
	}
}
