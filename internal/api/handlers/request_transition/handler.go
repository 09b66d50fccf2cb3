package request_transition

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	requestTransition "github.com/m04kA/SMC-AppointmentService/internal/usecase/request_transition"
)

const (
	msgInvalidAppointmentID = "некорректный ID записи"
	msgInvalidRequestBody   = "некорректное тело запроса"
	msgMissingIdentity      = "отсутствует идентификация пользователя"
	msgNotFound             = "запись не найдена"
	msgUnknownStatus        = "неизвестный статус"
	msgTransitionForbidden  = "переход запрещен для вашей роли"
	msgWindowExpired        = "срок изменения записи истек"
	msgRescheduleLimit      = "исчерпан лимит переносов"
	msgSelfApproval         = "нельзя согласовать собственный приемный акт"
	msgConflict             = "запись изменена параллельным запросом, повторите попытку"
	msgInvalidInput         = "некорректные данные запроса"
)

type Handler struct {
	useCase RequestTransitionUseCase
	logger  Logger
}

func NewHandler(useCase RequestTransitionUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle PATCH /api/v1/appointments/{appointmentId}/status
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseInt(vars["appointmentId"], 10, 64)
	if err != nil {
		h.logger.Warn("PATCH /appointments/{id}/status - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("PATCH /appointments/{id}/status - Missing actor in context")
		handlers.RespondUnauthorized(w, msgMissingIdentity)
		return
	}

	var req TransitionRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /appointments/{id}/status - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.useCase.Execute(r.Context(), req.ToUseCaseRequest(appointmentID, actor))
	if err != nil {
		switch {
		case errors.Is(err, requestTransition.ErrAppointmentNotFound):
			h.logger.Warn("PATCH /appointments/{id}/status - Appointment not found: appointment_id=%d", appointmentID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, requestTransition.ErrUnknownStatus):
			h.logger.Warn("PATCH /appointments/{id}/status - Unknown status: appointment_id=%d, target=%s",
				appointmentID, req.TargetStatus)
			handlers.RespondBadRequest(w, msgUnknownStatus)

		case errors.Is(err, requestTransition.ErrTransitionNotAllowed):
			h.logger.Warn("PATCH /appointments/{id}/status - Transition not allowed: appointment_id=%d, actor_id=%d, target=%s",
				appointmentID, actor.ID, req.TargetStatus)
			handlers.RespondForbidden(w, msgTransitionForbidden)

		case errors.Is(err, requestTransition.ErrWindowExpired):
			h.logger.Warn("PATCH /appointments/{id}/status - Time window expired: appointment_id=%d, actor_id=%d",
				appointmentID, actor.ID)
			handlers.RespondForbidden(w, msgWindowExpired)

		case errors.Is(err, requestTransition.ErrRescheduleLimit):
			h.logger.Warn("PATCH /appointments/{id}/status - Reschedule limit reached: appointment_id=%d", appointmentID)
			handlers.RespondForbidden(w, msgRescheduleLimit)

		case errors.Is(err, requestTransition.ErrSelfApproval):
			h.logger.Warn("PATCH /appointments/{id}/status - Self approval rejected: appointment_id=%d, actor_id=%d",
				appointmentID, actor.ID)
			handlers.RespondForbidden(w, msgSelfApproval)

		case errors.Is(err, requestTransition.ErrConflict):
			h.logger.Warn("PATCH /appointments/{id}/status - Version conflict: appointment_id=%d", appointmentID)
			handlers.RespondConflict(w, msgConflict)

		case errors.Is(err, requestTransition.ErrInvalidInput):
			h.logger.Warn("PATCH /appointments/{id}/status - Invalid input: appointment_id=%d, error=%v",
				appointmentID, err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		default:
			h.logger.Error("PATCH /appointments/{id}/status - Failed to apply transition: appointment_id=%d, error=%v",
				appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /appointments/{id}/status - Transition applied: appointment_id=%d, status=%s, version=%d, replayed=%t",
		result.ID, result.DetailedStatus, result.StatusVersion, result.Replayed)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
