package check_permission

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments"
)

const (
	msgInvalidAppointmentID = "некорректный ID записи"
	msgMissingIdentity      = "отсутствует идентификация пользователя"
	msgMissingAction        = "отсутствует параметр action"
	msgUnknownAction        = "неизвестное действие"
	msgNotFound             = "запись не найдена"
	msgForbidden            = "доступ запрещен"
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

// Handle GET /api/v1/appointments/{appointmentId}/permissions?action=cancel
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseInt(vars["appointmentId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /appointments/{id}/permissions - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("GET /appointments/{id}/permissions - Missing actor in context")
		handlers.RespondUnauthorized(w, msgMissingIdentity)
		return
	}

	action := r.URL.Query().Get("action")
	if action == "" {
		h.logger.Warn("GET /appointments/{id}/permissions - Missing action: appointment_id=%d", appointmentID)
		handlers.RespondBadRequest(w, msgMissingAction)
		return
	}

	result, err := h.service.CheckPermission(r.Context(), appointmentID, actor, action)
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrAppointmentNotFound):
			h.logger.Warn("GET /appointments/{id}/permissions - Appointment not found: appointment_id=%d", appointmentID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, appointments.ErrAccessDenied):
			h.logger.Warn("GET /appointments/{id}/permissions - Access denied: appointment_id=%d, actor_id=%d",
				appointmentID, actor.ID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, appointments.ErrInvalidInput):
			h.logger.Warn("GET /appointments/{id}/permissions - Unknown action: appointment_id=%d, action=%s",
				appointmentID, action)
			handlers.RespondBadRequest(w, msgUnknownAction)

		default:
			h.logger.Error("GET /appointments/{id}/permissions - Failed to check permission: appointment_id=%d, error=%v",
				appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /appointments/{id}/permissions - Permission checked: appointment_id=%d, actor_id=%d, action=%s, allowed=%t",
		appointmentID, actor.ID, action, result.Allowed)
	handlers.RespondJSON(w, http.StatusOK, result)
}
