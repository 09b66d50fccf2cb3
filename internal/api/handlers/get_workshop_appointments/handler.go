package get_workshop_appointments

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments/models"
)

const (
	msgMissingIdentity   = "отсутствует идентификация пользователя"
	msgForbidden         = "доступ запрещен"
	msgInvalidTechnician = "некорректный ID механика"
	msgInvalidDate       = "некорректный формат даты, ожидается YYYY-MM-DD"
	msgInvalidFilter     = "некорректный фильтр"
)

type Handler struct {
	service AppointmentService
	logger  Logger
}

func NewHandler(service AppointmentService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/workshop/appointments
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("GET /workshop/appointments - Missing actor in context")
		handlers.RespondUnauthorized(w, msgMissingIdentity)
		return
	}

	serviceReq, err := h.parseFilter(r)
	if err != nil {
		h.logger.Warn("GET /workshop/appointments - Invalid filter: %v", err)
		handlers.RespondBadRequest(w, err.Error())
		return
	}

	result, err := h.service.GetWorkshopAppointments(r.Context(), actor, serviceReq)
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrAccessDenied):
			h.logger.Warn("GET /workshop/appointments - Access denied: actor_id=%d, role=%s",
				actor.ID, actor.Role)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, appointments.ErrInvalidInput):
			h.logger.Warn("GET /workshop/appointments - Invalid filter: actor_id=%d, error=%v", actor.ID, err)
			handlers.RespondBadRequest(w, msgInvalidFilter)

		default:
			h.logger.Error("GET /workshop/appointments - Failed to get appointments: actor_id=%d, error=%v",
				actor.ID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /workshop/appointments - Appointments retrieved: actor_id=%d, count=%d",
		actor.ID, len(result.Appointments))
	handlers.RespondJSON(w, http.StatusOK, result)
}

// parseFilter собирает фильтр мастерской из query параметров
func (h *Handler) parseFilter(r *http.Request) (*models.GetWorkshopAppointmentsRequest, error) {
	query := r.URL.Query()
	req := &models.GetWorkshopAppointmentsRequest{}

	if raw := query.Get("technicianId"); raw != "" {
		technicianID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.New(msgInvalidTechnician)
		}
		req.TechnicianID = &technicianID
	}

	if raw := query.Get("startDate"); raw != "" {
		startDate, err := time.Parse(domain.DateFormat, raw)
		if err != nil {
			return nil, errors.New(msgInvalidDate)
		}
		req.StartDate = &startDate
	}

	if raw := query.Get("endDate"); raw != "" {
		endDate, err := time.Parse(domain.DateFormat, raw)
		if err != nil {
			return nil, errors.New(msgInvalidDate)
		}
		req.EndDate = &endDate
	}

	if raw := query.Get("status"); raw != "" {
		req.Status = &raw
	}

	req.IncludeClosed = query.Get("includeClosed") == "true"

	return req, nil
}
