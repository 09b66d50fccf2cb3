package create_appointment

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	createAppointment "github.com/m04kA/SMC-AppointmentService/internal/usecase/create_appointment"
)

const (
	msgInvalidRequestBody    = "некорректное тело запроса"
	msgInvalidScheduledAt    = "некорректный формат времени визита, ожидается RFC3339"
	msgMissingIdentity       = "отсутствует идентификация пользователя"
	msgTechnicianNotFound    = "механик не найден"
	msgNotTechnician         = "указанный сотрудник не является механиком"
	msgScheduledInPast       = "время визита в прошлом"
	msgInvalidAppointmentReq = "некорректные данные записи"
)

type Handler struct {
	useCase CreateAppointmentUseCase
	logger  Logger
}

func NewHandler(useCase CreateAppointmentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/appointments
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments - Missing actor in context")
		handlers.RespondUnauthorized(w, msgMissingIdentity)
		return
	}

	var req CreateAppointmentRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	// Конвертируем HTTP запрос в модель use case (с парсингом времени визита)
	useCaseReq, err := req.ToUseCaseRequest(actor)
	if err != nil {
		h.logger.Warn("POST /appointments - Failed to parse scheduledAt: %v", err)
		handlers.RespondBadRequest(w, msgInvalidScheduledAt)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, createAppointment.ErrTechnicianNotFound):
			h.logger.Warn("POST /appointments - Technician not found: customer_id=%d", req.CustomerID)
			handlers.RespondNotFound(w, msgTechnicianNotFound)

		case errors.Is(err, createAppointment.ErrNotTechnician):
			h.logger.Warn("POST /appointments - Assignee is not a technician: customer_id=%d", req.CustomerID)
			handlers.RespondBadRequest(w, msgNotTechnician)

		case errors.Is(err, createAppointment.ErrScheduledInPast):
			h.logger.Warn("POST /appointments - Scheduled in past: customer_id=%d", req.CustomerID)
			handlers.RespondBadRequest(w, msgScheduledInPast)

		case errors.Is(err, createAppointment.ErrInvalidInput):
			h.logger.Warn("POST /appointments - Invalid input: customer_id=%d, error=%v", req.CustomerID, err)
			handlers.RespondBadRequest(w, msgInvalidAppointmentReq)

		default:
			h.logger.Error("POST /appointments - Failed to create appointment: customer_id=%d, error=%v",
				req.CustomerID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	response := FromUseCaseResponse(result)

	h.logger.Info("POST /appointments - Appointment created successfully: appointment_id=%d, customer_id=%d",
		result.ID, result.CustomerID)
	handlers.RespondJSON(w, http.StatusCreated, response)
}
