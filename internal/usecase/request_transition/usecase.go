package request_transition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	apptRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/workflow/permissions"
	"github.com/m04kA/SMC-AppointmentService/internal/workflow/statusmodel"
)

// UseCase use case перехода статуса записи.
// Единственный путь изменения статуса: все проверки (граф, роль, окна,
// разделение обязанностей) и атомарная пара "условное обновление + журнал"
// проходят здесь.
type UseCase struct {
	repo            AppointmentRepository
	policy          PermissionPolicy
	txManager       TransactionManager
	emitter         EventEmitter
	metrics         MetricsRecorder
	timeProvider    TimeProvider
	conflictRetries int
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	repo AppointmentRepository,
	policy PermissionPolicy,
	txManager TransactionManager,
	emitter EventEmitter,
	metrics MetricsRecorder,
	conflictRetries int,
	logger Logger,
) *UseCase {
	if conflictRetries <= 0 {
		conflictRetries = domain.DefaultConflictRetries
	}
	return &UseCase{
		repo:            repo,
		policy:          policy,
		txManager:       txManager,
		emitter:         emitter,
		metrics:         metrics,
		timeProvider:    &RealTimeProvider{},
		conflictRetries: conflictRetries,
		logger:          logger,
	}
}

// Execute выполняет переход статуса.
// При конкурентном конфликте версия перечитывается и попытка повторяется;
// повтор уже применённого запроса (тот же RequestID) возвращает текущее
// состояние без второй записи в журнале.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("RequestTransition: appointment=%d, target=%s, actor=%d, role=%s",
		req.AppointmentID, req.TargetStatus, req.Actor.ID, req.Actor.Role)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("RequestTransition: validation failed: %v", err)
		return nil, err
	}

	// 2. Получаем текущее время
	now := uc.timeProvider.Now()

	var lastFrom domain.DetailedStatus

	for attempt := 0; attempt <= uc.conflictRetries; attempt++ {
		// 3. Загружаем запись
		appt, err := uc.repo.GetByID(ctx, req.AppointmentID)
		if err != nil {
			if errors.Is(err, apptRepo.ErrAppointmentNotFound) {
				uc.logger.Warn("RequestTransition: appointment id=%d not found", req.AppointmentID)
				return nil, ErrAppointmentNotFound
			}
			uc.logger.Error("RequestTransition: failed to get appointment id=%d: %v", req.AppointmentID, err)
			return nil, fmt.Errorf("%w: failed to get appointment: %v", ErrInternal, err)
		}
		lastFrom = appt.DetailedStatus

		// 4. Повтор уже применённого запроса отвечаем текущим состоянием
		replayed, err := uc.isReplay(ctx, req, appt)
		if err != nil {
			return nil, err
		}
		if replayed {
			uc.logger.Info("RequestTransition: replay of request_id=%s on appointment=%d, returning current state",
				req.RequestID, req.AppointmentID)
			uc.metrics.RecordTransition(string(appt.DetailedStatus), string(req.TargetStatus), "replay")
			return buildResponse(appt, true), nil
		}

		// 5. Проверяем переход по графу статусов и роли
		if err := uc.checkTransition(appt, req); err != nil {
			uc.metrics.RecordTransition(string(appt.DetailedStatus), string(req.TargetStatus), "forbidden")
			return nil, err
		}

		// 6. Клиентская политика временных окон
		if err := uc.checkCustomerPolicy(appt, req, now); err != nil {
			uc.metrics.RecordTransition(string(appt.DetailedStatus), string(req.TargetStatus), "forbidden")
			return nil, err
		}

		// 7. Разделение обязанностей: приёмку утверждает не её автор
		if err := uc.checkSegregation(ctx, appt, req); err != nil {
			if errors.Is(err, ErrSelfApproval) {
				uc.metrics.RecordTransition(string(appt.DetailedStatus), string(req.TargetStatus), "forbidden")
			}
			return nil, err
		}

		// 8. Атомарно: условное обновление статуса + запись журнала
		from := appt.DetailedStatus
		txErr := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
			err := uc.repo.UpdateStatus(
				txCtx,
				appt.ID,
				from,
				req.TargetStatus,
				appt.StatusVersion,
				req.TargetStatus == domain.StatusRescheduled,
				req.TargetStatus == domain.StatusNoShow,
			)
			if err != nil {
				return err
			}

			entry := &domain.HistoryEntry{
				AppointmentID: appt.ID,
				Status:        req.TargetStatus,
				ActorID:       req.Actor.ID,
				ActorRole:     req.Actor.Role,
				Notes:         req.Notes,
				Reason:        req.Reason,
			}
			if req.RequestID != "" {
				entry.RequestID = &req.RequestID
			}

			if _, err := uc.repo.AppendHistory(txCtx, entry); err != nil {
				return fmt.Errorf("%w: failed to append history: %v", ErrInternal, err)
			}
			return nil
		})

		if txErr != nil {
			if errors.Is(txErr, apptRepo.ErrVersionConflict) {
				uc.logger.Warn("RequestTransition: version conflict on appointment=%d (attempt %d), retrying",
					appt.ID, attempt+1)
				continue
			}
			uc.logger.Error("RequestTransition: transaction failed on appointment=%d: %v", appt.ID, txErr)
			if errors.Is(txErr, ErrInternal) {
				return nil, txErr
			}
			return nil, fmt.Errorf("%w: transaction failed: %v", ErrInternal, txErr)
		}

		// 9. Коммит прошёл: фиксируем метрику и эмитим событие
		uc.metrics.RecordTransition(string(from), string(req.TargetStatus), "success")
		uc.emitter.Emit(uc.buildEvent(appt, req, from, now))

		uc.logger.Info("RequestTransition: appointment=%d moved %s -> %s by actor=%d",
			appt.ID, from, req.TargetStatus, req.Actor.ID)

		appt.DetailedStatus = req.TargetStatus
		appt.StatusVersion++
		appt.UpdatedAt = now
		return buildResponse(appt, false), nil
	}

	uc.logger.Warn("RequestTransition: retries exhausted on appointment=%d, target=%s",
		req.AppointmentID, req.TargetStatus)
	uc.metrics.RecordTransition(string(lastFrom), string(req.TargetStatus), "conflict")
	return nil, ErrConflict
}

// isReplay проверяет, не является ли запрос повтором уже применённого перехода
func (uc *UseCase) isReplay(ctx context.Context, req *Request, appt *domain.Appointment) (bool, error) {
	if req.RequestID == "" {
		return false, nil
	}

	latest, err := uc.repo.GetLatestHistory(ctx, req.AppointmentID)
	if err != nil {
		if errors.Is(err, apptRepo.ErrHistoryNotFound) {
			return false, nil
		}
		uc.logger.Error("RequestTransition: failed to get latest history for appointment=%d: %v",
			req.AppointmentID, err)
		return false, fmt.Errorf("%w: failed to get latest history: %v", ErrInternal, err)
	}

	return latest.RequestID != nil &&
		*latest.RequestID == req.RequestID &&
		latest.Status == req.TargetStatus &&
		appt.DetailedStatus == req.TargetStatus, nil
}

// checkTransition проверяет переход по графу статусов
func (uc *UseCase) checkTransition(appt *domain.Appointment, req *Request) error {
	if !statusmodel.IsLegalTransition(appt.DetailedStatus, req.TargetStatus, req.Actor.Role) {
		uc.logger.Warn("RequestTransition: %s -> %s forbidden for role=%s on appointment=%d",
			appt.DetailedStatus, req.TargetStatus, req.Actor.Role, appt.ID)
		return fmt.Errorf("%w: %s -> %s for role %s",
			ErrTransitionNotAllowed, appt.DetailedStatus, req.TargetStatus, req.Actor.Role)
	}
	return nil
}

// checkCustomerPolicy применяет временные окна к клиентским отменам и переносам
func (uc *UseCase) checkCustomerPolicy(appt *domain.Appointment, req *Request, now time.Time) error {
	if req.Actor.Role != domain.RoleCustomer {
		return nil
	}

	var action permissions.Action
	switch req.TargetStatus {
	case domain.StatusRescheduled:
		action = permissions.ActionReschedule
	case domain.StatusCancelled:
		action = permissions.ActionCancel
	default:
		return nil
	}

	decision := uc.policy.Check(appt, action, now)
	if decision.Allowed {
		return nil
	}

	uc.logger.Warn("RequestTransition: customer policy denied %s on appointment=%d: %s",
		action, appt.ID, decision.Reason)

	switch decision.Reason {
	case permissions.ReasonRescheduleLimit:
		return ErrRescheduleLimit
	case permissions.ReasonWindowExpired:
		return ErrWindowExpired
	default:
		return fmt.Errorf("%w: %s", ErrTransitionNotAllowed, decision.Reason)
	}
}

// checkSegregation запрещает автору приёмки утверждать её самому
func (uc *UseCase) checkSegregation(ctx context.Context, appt *domain.Appointment, req *Request) error {
	if appt.DetailedStatus != domain.StatusReceptionCreated ||
		req.TargetStatus != domain.StatusReceptionApproved {
		return nil
	}

	created, err := uc.repo.GetLatestHistoryByStatus(ctx, appt.ID, domain.StatusReceptionCreated)
	if err != nil {
		if errors.Is(err, apptRepo.ErrHistoryNotFound) {
			// Журнал без записи о приёмке: утверждать некому запрещать
			return nil
		}
		uc.logger.Error("RequestTransition: failed to get reception history for appointment=%d: %v",
			appt.ID, err)
		return fmt.Errorf("%w: failed to get reception history: %v", ErrInternal, err)
	}

	if created.ActorID == req.Actor.ID {
		uc.logger.Warn("RequestTransition: actor=%d tried to approve own reception on appointment=%d",
			req.Actor.ID, appt.ID)
		return ErrSelfApproval
	}

	return nil
}

// buildEvent собирает событие для маршрутизатора уведомлений
func (uc *UseCase) buildEvent(appt *domain.Appointment, req *Request, from domain.DetailedStatus, now time.Time) domain.Event {
	event := domain.Event{
		ID:            uuid.NewString(),
		Type:          domain.EventAppointmentStatusChanged,
		AppointmentID: appt.ID,
		CustomerID:    appt.CustomerID,
		TechnicianID:  appt.TechnicianID,
		FromStatus:    from,
		ToStatus:      req.TargetStatus,
		CoreStatus:    statusmodel.CoarseStatus(req.TargetStatus),
		ActorID:       req.Actor.ID,
		ActorRole:     req.Actor.Role,
		Priority:      transitionPriority(req.TargetStatus),
		OccurredAt:    now,
	}

	switch req.TargetStatus {
	case domain.StatusPartsRequested:
		event.Type = domain.EventPartsRequested
	case domain.StatusInvoiced:
		event.Type = domain.EventPaymentReceived
		if req.Amount != nil {
			event.Amount = *req.Amount
		}
	}

	return event
}

// transitionPriority определяет приоритет уведомления по целевому статусу
func transitionPriority(to domain.DetailedStatus) domain.Priority {
	switch to {
	case domain.StatusNoShow, domain.StatusPartsInsufficient:
		return domain.PriorityHigh
	default:
		return domain.PriorityNormal
	}
}

func buildResponse(appt *domain.Appointment, replayed bool) *Response {
	return &Response{
		ID:             appt.ID,
		CustomerID:     appt.CustomerID,
		TechnicianID:   appt.TechnicianID,
		DetailedStatus: appt.DetailedStatus,
		CoreStatus:     statusmodel.CoarseStatus(appt.DetailedStatus),
		StatusVersion:  appt.StatusVersion,
		ScheduledAt:    appt.ScheduledAt,
		Replayed:       replayed,
		UpdatedAt:      appt.UpdatedAt,
	}
}

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.AppointmentID <= 0 {
		return fmt.Errorf("%w: appointmentID must be positive", ErrInvalidInput)
	}

	if req.Actor.ID <= 0 {
		return fmt.Errorf("%w: actor id must be positive", ErrInvalidInput)
	}

	if !req.Actor.Role.IsValid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, req.Actor.Role)
	}

	if req.TargetStatus == "" {
		return fmt.Errorf("%w: target status is required", ErrInvalidInput)
	}

	if !statusmodel.IsKnownStatus(req.TargetStatus) {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, req.TargetStatus)
	}

	if req.Notes != nil && len(*req.Notes) > domain.MaxNotesLength {
		return fmt.Errorf("%w: notes too long", ErrInvalidInput)
	}

	if req.Reason != nil && len(*req.Reason) > domain.MaxReasonLength {
		return fmt.Errorf("%w: reason too long", ErrInvalidInput)
	}

	return nil
}
