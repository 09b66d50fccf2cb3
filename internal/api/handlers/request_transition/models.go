package request_transition

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	requestTransition "github.com/m04kA/SMC-AppointmentService/internal/usecase/request_transition"
)

// TransitionRequest HTTP request model
type TransitionRequest struct {
	TargetStatus string   `json:"targetStatus"`
	Notes        *string  `json:"notes,omitempty"`
	Reason       *string  `json:"reason,omitempty"`
	Amount       *float64 `json:"amount,omitempty"`
	RequestID    string   `json:"requestId,omitempty"` // Идемпотентный ключ
}

// TransitionResponse HTTP response model
type TransitionResponse struct {
	ID             int64  `json:"id"`
	CustomerID     int64  `json:"customerId"`
	TechnicianID   *int64 `json:"technicianId,omitempty"`
	DetailedStatus string `json:"detailedStatus"`
	CoreStatus     string `json:"coreStatus"`
	StatusVersion  int64  `json:"statusVersion"`
	ScheduledAt    string `json:"scheduledAt"`
	Replayed       bool   `json:"replayed,omitempty"`
	UpdatedAt      string `json:"updatedAt"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *TransitionRequest) ToUseCaseRequest(appointmentID int64, actor domain.Actor) *requestTransition.Request {
	return &requestTransition.Request{
		AppointmentID: appointmentID,
		TargetStatus:  domain.DetailedStatus(r.TargetStatus),
		Actor:         actor,
		Notes:         r.Notes,
		Reason:        r.Reason,
		Amount:        r.Amount,
		RequestID:     r.RequestID,
	}
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *requestTransition.Response) *TransitionResponse {
	return &TransitionResponse{
		ID:             resp.ID,
		CustomerID:     resp.CustomerID,
		TechnicianID:   resp.TechnicianID,
		DetailedStatus: string(resp.DetailedStatus),
		CoreStatus:     string(resp.CoreStatus),
		StatusVersion:  resp.StatusVersion,
		ScheduledAt:    resp.ScheduledAt.Format(time.RFC3339),
		Replayed:       resp.Replayed,
		UpdatedAt:      resp.UpdatedAt.Format(time.RFC3339),
	}
}
