package create_appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	staffClient "github.com/m04kA/SMC-AppointmentService/internal/integrations/staffservice"
	"github.com/m04kA/SMC-AppointmentService/internal/workflow/statusmodel"
)

// UseCase use case создания записи на обслуживание
type UseCase struct {
	repo         AppointmentRepository
	staffClient  StaffServiceClient
	txManager    TransactionManager
	emitter      EventEmitter
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	repo AppointmentRepository,
	staffClient StaffServiceClient,
	txManager TransactionManager,
	emitter EventEmitter,
	logger Logger,
) *UseCase {
	return &UseCase{
		repo:         repo,
		staffClient:  staffClient,
		txManager:    txManager,
		emitter:      emitter,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Execute выполняет use case создания записи
// Запись создается в статусе pending вместе с первой записью журнала
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateAppointment: actor=%d, role=%s, customer=%d, service=%q, scheduled_at=%s",
		req.Actor.ID, req.Actor.Role, req.CustomerID, req.ServiceName, req.ScheduledAt.Format(domain.DateFormat))

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CreateAppointment: validation failed: %v", err)
		return nil, err
	}

	// 2. Получаем текущее время и проверяем, что визит в будущем
	now := uc.timeProvider.Now()
	if err := validateScheduledAt(req.ScheduledAt, now); err != nil {
		uc.logger.Warn("CreateAppointment: scheduled time %s is in the past", req.ScheduledAt)
		return nil, err
	}

	// 3. Проверяем назначаемого механика, если он указан
	if req.TechnicianID != nil {
		member, err := uc.staffClient.GetStaffMemberWithGracefulDegradation(ctx, *req.TechnicianID)
		switch {
		case err == nil:
			if member.Role != string(domain.RoleTechnician) || !member.Active {
				uc.logger.Warn("CreateAppointment: staff id=%d is not an active technician", *req.TechnicianID)
				return nil, ErrNotTechnician
			}
		case errors.Is(err, staffClient.ErrStaffNotFound):
			uc.logger.Warn("CreateAppointment: technician id=%d not found", *req.TechnicianID)
			return nil, ErrTechnicianNotFound
		case errors.Is(err, staffClient.ErrServiceDegraded):
			// StaffService недоступен: создаём запись без проверки механика
			uc.logger.Warn("CreateAppointment: skipping technician check for id=%d: %v", *req.TechnicianID, err)
		default:
			uc.logger.Error("CreateAppointment: failed to get staff member id=%d: %v", *req.TechnicianID, err)
			return nil, fmt.Errorf("%w: failed to get staff member: %v", ErrInternal, err)
		}
	}

	priority := domain.PriorityNormal
	if req.Priority != nil {
		priority = domain.Priority(*req.Priority)
	}

	appt := &domain.Appointment{
		CustomerID:          req.CustomerID,
		TechnicianID:        req.TechnicianID,
		CreatedBy:           req.Actor.ID,
		VehicleBrand:        req.VehicleBrand,
		VehicleModel:        req.VehicleModel,
		VehicleLicensePlate: req.VehicleLicensePlate,
		ServiceName:         req.ServiceName,
		DetailedStatus:      domain.StatusPending,
		ScheduledAt:         req.ScheduledAt,
		Priority:            priority,
		Notes:               req.Notes,
	}

	// 4. Атомарно: запись + первая строка журнала
	var result *domain.Appointment
	err := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		created, err := uc.repo.Create(txCtx, appt)
		if err != nil {
			uc.logger.Error("CreateAppointment: failed to create appointment: %v", err)
			return fmt.Errorf("%w: failed to create appointment: %v", ErrInternal, err)
		}

		entry := &domain.HistoryEntry{
			AppointmentID: created.ID,
			Status:        domain.StatusPending,
			ActorID:       req.Actor.ID,
			ActorRole:     req.Actor.Role,
			Notes:         req.Notes,
		}
		if _, err := uc.repo.AppendHistory(txCtx, entry); err != nil {
			uc.logger.Error("CreateAppointment: failed to append history: %v", err)
			return fmt.Errorf("%w: failed to append history: %v", ErrInternal, err)
		}

		result = created
		return nil
	})

	if err != nil {
		return nil, err
	}

	uc.logger.Info("CreateAppointment: successfully created appointment id=%d", result.ID)

	// 5. Событие для персонала после коммита
	uc.emitter.Emit(domain.Event{
		ID:            uuid.NewString(),
		Type:          domain.EventAppointmentCreated,
		AppointmentID: result.ID,
		CustomerID:    result.CustomerID,
		TechnicianID:  result.TechnicianID,
		ToStatus:      result.DetailedStatus,
		CoreStatus:    statusmodel.CoarseStatus(result.DetailedStatus),
		ActorID:       req.Actor.ID,
		ActorRole:     req.Actor.Role,
		Priority:      result.Priority,
		OccurredAt:    now,
	})

	return &Response{
		ID:                  result.ID,
		CustomerID:          result.CustomerID,
		TechnicianID:        result.TechnicianID,
		ServiceName:         result.ServiceName,
		DetailedStatus:      result.DetailedStatus,
		CoreStatus:          statusmodel.CoarseStatus(result.DetailedStatus),
		ScheduledAt:         result.ScheduledAt,
		Priority:            result.Priority,
		VehicleBrand:        result.VehicleBrand,
		VehicleModel:        result.VehicleModel,
		VehicleLicensePlate: result.VehicleLicensePlate,
		Notes:               result.Notes,
		CreatedAt:           result.CreatedAt,
		UpdatedAt:           result.UpdatedAt,
	}, nil
}
