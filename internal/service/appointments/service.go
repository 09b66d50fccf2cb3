package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	apptRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments/models"
	"github.com/m04kA/SMC-AppointmentService/internal/workflow/permissions"
	"github.com/m04kA/SMC-AppointmentService/internal/workflow/statusmodel"
)

// Service read-сторона записей: выборки, журнал, доступные действия.
// Правила переходов и окон не дублируются - сервис делегирует их
// statusmodel и политике, чтобы UI всегда видел те же решения,
// что и исполнитель переходов.
type Service struct {
	repo         AppointmentRepository
	policy       PermissionPolicy
	timeProvider TimeProvider
	logger       Logger
}

// NewService создает новый экземпляр сервиса записей
func NewService(
	repo AppointmentRepository,
	policy PermissionPolicy,
	logger Logger,
) *Service {
	return &Service{
		repo:         repo,
		policy:       policy,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// GetByID получает запись по ID
// Клиент видит только свои записи; персонал и назначенный механик - любые свои
func (s *Service) GetByID(ctx context.Context, id int64, actor domain.Actor) (*models.AppointmentResponse, error) {
	s.logger.Info("GetByID: fetching appointment id=%d for actor=%d role=%s", id, actor.ID, actor.Role)

	appt, err := s.loadWithAccess(ctx, id, actor, "GetByID")
	if err != nil {
		return nil, err
	}

	return models.FromDomainAppointment(appt), nil
}

// GetUserAppointments получает записи пользователя
// Клиент может смотреть только собственный список
func (s *Service) GetUserAppointments(ctx context.Context, actor domain.Actor, req *models.GetUserAppointmentsRequest) (*models.AppointmentListResponse, error) {
	s.logger.Info("GetUserAppointments: fetching appointments for user=%d, status=%v", req.UserID, req.Status)

	if actor.Role == domain.RoleCustomer && actor.ID != req.UserID {
		s.logger.Warn("GetUserAppointments: customer=%d tried to list user=%d", actor.ID, req.UserID)
		return nil, ErrAccessDenied
	}

	var domainStatus *domain.DetailedStatus
	if req.Status != nil {
		status, err := models.ToDomainStatus(*req.Status)
		if err != nil {
			s.logger.Warn("GetUserAppointments: invalid status=%s for user=%d", *req.Status, req.UserID)
			return nil, fmt.Errorf("%w: invalid status", ErrInvalidInput)
		}
		domainStatus = &status
	}

	appointments, err := s.repo.GetByUserID(ctx, req.UserID, domainStatus)
	if err != nil {
		s.logger.Error("GetUserAppointments: repository error for user=%d: %v", req.UserID, err)
		return nil, fmt.Errorf("%w: GetUserAppointments - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetUserAppointments: successfully fetched %d appointments for user=%d", len(appointments), req.UserID)
	return models.FromDomainAppointmentList(appointments), nil
}

// GetWorkshopAppointments получает записи мастерской с фильтрацией
// Доступно только персоналу
func (s *Service) GetWorkshopAppointments(ctx context.Context, actor domain.Actor, req *models.GetWorkshopAppointmentsRequest) (*models.AppointmentListResponse, error) {
	s.logger.Info("GetWorkshopAppointments: actor=%d role=%s", actor.ID, actor.Role)

	if !actor.Role.IsWorkshop() {
		s.logger.Warn("GetWorkshopAppointments: access denied for actor=%d role=%s", actor.ID, actor.Role)
		return nil, ErrAccessDenied
	}

	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("GetWorkshopAppointments: invalid filter: %v", err)
		return nil, fmt.Errorf("%w: invalid filter", ErrInvalidInput)
	}

	appointments, err := s.repo.GetWithFilter(ctx, filter)
	if err != nil {
		s.logger.Error("GetWorkshopAppointments: repository error: %v", err)
		return nil, fmt.Errorf("%w: GetWorkshopAppointments - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetWorkshopAppointments: successfully fetched %d appointments", len(appointments))
	return models.FromDomainAppointmentList(appointments), nil
}

// GetHistory возвращает журнал статусов записи
func (s *Service) GetHistory(ctx context.Context, id int64, actor domain.Actor) (*models.HistoryResponse, error) {
	s.logger.Info("GetHistory: fetching history for appointment id=%d, actor=%d", id, actor.ID)

	if _, err := s.loadWithAccess(ctx, id, actor, "GetHistory"); err != nil {
		return nil, err
	}

	entries, err := s.repo.GetHistory(ctx, id)
	if err != nil {
		s.logger.Error("GetHistory: repository error for appointment id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetHistory - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetHistory: successfully fetched %d entries for appointment id=%d", len(entries), id)
	return models.FromDomainHistory(id, entries), nil
}

// AvailableActions возвращает статусы, в которые актор может перевести запись,
// и решения политики по клиентским действиям (для кнопок в UI)
func (s *Service) AvailableActions(ctx context.Context, id int64, actor domain.Actor) (*models.AvailableActionsResponse, error) {
	s.logger.Info("AvailableActions: appointment id=%d, actor=%d role=%s", id, actor.ID, actor.Role)

	appt, err := s.loadWithAccess(ctx, id, actor, "AvailableActions")
	if err != nil {
		return nil, err
	}

	now := s.timeProvider.Now()

	next := statusmodel.NextLegalStatuses(appt.DetailedStatus, actor.Role)
	nextStrings := make([]string, 0, len(next))
	for _, status := range next {
		// Для клиента граф дополнительно фильтруется временными окнами
		if actor.Role == domain.RoleCustomer {
			if action, gated := customerAction(status); gated {
				if !s.policy.Check(appt, action, now).Allowed {
					continue
				}
			}
		}
		nextStrings = append(nextStrings, string(status))
	}

	resp := &models.AvailableActionsResponse{
		AppointmentID: appt.ID,
		CurrentStatus: string(appt.DetailedStatus),
		NextStatuses:  nextStrings,
	}

	if actor.Role == domain.RoleCustomer {
		resp.CustomerActions = map[string]models.ActionDecision{
			string(permissions.ActionReschedule): toActionDecision(s.policy.Check(appt, permissions.ActionReschedule, now)),
			string(permissions.ActionCancel):     toActionDecision(s.policy.Check(appt, permissions.ActionCancel, now)),
		}
	}

	return resp, nil
}

// CheckPermission проверяет одно клиентское действие
func (s *Service) CheckPermission(ctx context.Context, id int64, actor domain.Actor, action string) (*models.PermissionResponse, error) {
	s.logger.Info("CheckPermission: appointment id=%d, actor=%d, action=%s", id, actor.ID, action)

	if !permissions.Action(action).IsValid() {
		s.logger.Warn("CheckPermission: unknown action=%s", action)
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}

	appt, err := s.loadWithAccess(ctx, id, actor, "CheckPermission")
	if err != nil {
		return nil, err
	}

	decision := s.policy.Check(appt, permissions.Action(action), s.timeProvider.Now())

	return &models.PermissionResponse{
		AppointmentID: appt.ID,
		Action:        action,
		Allowed:       decision.Allowed,
		Reason:        decision.Reason,
	}, nil
}

// Вспомогательные методы

// loadWithAccess загружает запись и проверяет доступ актора к ней
func (s *Service) loadWithAccess(ctx context.Context, id int64, actor domain.Actor, method string) (*domain.Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apptRepo.ErrAppointmentNotFound) {
			s.logger.Warn("%s: appointment id=%d not found", method, id)
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("%s: repository error for appointment id=%d: %v", method, id, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", ErrInternal, method, err)
	}

	if err := s.checkAccess(appt, actor); err != nil {
		s.logger.Warn("%s: access denied for actor=%d role=%s to appointment id=%d", method, actor.ID, actor.Role, id)
		return nil, err
	}

	return appt, nil
}

// checkAccess проверяет, что актор имеет доступ к записи
// Персонал видит все записи; клиент - только те, в которых участвует
func (s *Service) checkAccess(appt *domain.Appointment, actor domain.Actor) error {
	if actor.Role.IsWorkshop() {
		return nil
	}

	if appt.IsInvolved(actor.ID) {
		return nil
	}

	return ErrAccessDenied
}

// customerAction сопоставляет целевой статус с действием политики
func customerAction(to domain.DetailedStatus) (permissions.Action, bool) {
	switch to {
	case domain.StatusRescheduled:
		return permissions.ActionReschedule, true
	case domain.StatusCancelled:
		return permissions.ActionCancel, true
	default:
		return "", false
	}
}

func toActionDecision(d permissions.Decision) models.ActionDecision {
	return models.ActionDecision{Allowed: d.Allowed, Reason: d.Reason}
}
