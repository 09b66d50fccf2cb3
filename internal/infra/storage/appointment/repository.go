package appointment

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
)

var appointmentColumns = []string{
	"id",
	"customer_id",
	"technician_id",
	"created_by",
	"vehicle_brand",
	"vehicle_model",
	"vehicle_license_plate",
	"service_name",
	"detailed_status",
	"scheduled_at",
	"priority",
	"reschedule_count",
	"no_show_count",
	"status_version",
	"notes",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с записями на обслуживание
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория записей
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новую запись со статусом pending и нулевой версией
func (r *Repository) Create(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("appointments").
		Columns(
			"customer_id",
			"technician_id",
			"created_by",
			"vehicle_brand",
			"vehicle_model",
			"vehicle_license_plate",
			"service_name",
			"detailed_status",
			"scheduled_at",
			"priority",
			"notes",
		).
		Values(
			appt.CustomerID,
			appt.TechnicianID,
			appt.CreatedBy,
			appt.VehicleBrand,
			appt.VehicleModel,
			appt.VehicleLicensePlate,
			appt.ServiceName,
			appt.DetailedStatus,
			appt.ScheduledAt,
			appt.Priority,
			appt.Notes,
		).
		Suffix("RETURNING id, status_version, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&appt.ID,
		&appt.StatusVersion,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	appt.CreatedAt = createdAt.Time
	appt.UpdatedAt = updatedAt.Time

	return appt, nil
}

// GetByID получает запись по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where(squirrel.Eq{"id": id})

	// Внутри транзакции блокируем строку на время проверки перехода
	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	appt, err := r.scanAppointment(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan appointment: %v", ErrScanRow, err)
	}

	return appt, nil
}

// GetByUserID получает записи, в которых пользователь участвует как клиент
// или назначенный механик
// Опционально фильтрует по статусу
func (r *Repository) GetByUserID(ctx context.Context, userID int64, status *domain.DetailedStatus) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where(squirrel.Or{
			squirrel.Eq{"customer_id": userID},
			squirrel.Eq{"technician_id": userID},
		}).
		OrderBy("scheduled_at DESC")

	if status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"detailed_status": *status})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByUserID - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByUserID - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanAppointments(rows)
}

// GetWithFilter получает записи мастерской с гибкой фильтрацией
// Поддерживает фильтрацию по механику, периоду и статусу;
// по умолчанию завершённые записи исключаются
func (r *Repository) GetWithFilter(ctx context.Context, filter domain.WorkshopFilter) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(appointmentColumns...).
		From("appointments")

	if filter.TechnicianID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"technician_id": *filter.TechnicianID})
	}
	if filter.StartDate != nil {
		selectBuilder = selectBuilder.Where(squirrel.GtOrEq{"scheduled_at": *filter.StartDate})
	}
	if filter.EndDate != nil {
		selectBuilder = selectBuilder.Where(squirrel.LtOrEq{"scheduled_at": *filter.EndDate})
	}

	if filter.Status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"detailed_status": *filter.Status})
	} else if !filter.IncludeClosed {
		closedStatusStrings := make([]string, len(domain.ClosedStatuses))
		for i, s := range domain.ClosedStatuses {
			closedStatusStrings[i] = string(s)
		}
		selectBuilder = selectBuilder.Where(squirrel.NotEq{"detailed_status": closedStatusStrings})
	}

	selectBuilder = selectBuilder.OrderBy("scheduled_at ASC")

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetWithFilter - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetWithFilter - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanAppointments(rows)
}

// UpdateStatus выполняет условное обновление статуса.
// Строка обновляется только если текущий статус и версия совпадают с
// ожидаемыми; иначе возвращается ErrVersionConflict. Так две конкурентные
// попытки одного перехода разрешаются ровно в одного победителя.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to domain.DetailedStatus, version int64, incrementReschedule, incrementNoShow bool) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	updateBuilder := psqlbuilder.Update("appointments").
		Set("detailed_status", to).
		Set("status_version", squirrel.Expr("status_version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{
			"id":              id,
			"detailed_status": from,
			"status_version":  version,
		})

	if incrementReschedule {
		updateBuilder = updateBuilder.Set("reschedule_count", squirrel.Expr("reschedule_count + 1"))
	}
	if incrementNoShow {
		updateBuilder = updateBuilder.Set("no_show_count", squirrel.Expr("no_show_count + 1"))
	}

	query, args, err := updateBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrVersionConflict
	}

	return nil
}

// AssignTechnician назначает механика на запись
func (r *Repository) AssignTechnician(ctx context.Context, id int64, technicianID int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("appointments").
		Set("technician_id", technicianID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: AssignTechnician - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: AssignTechnician - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: AssignTechnician - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrAppointmentNotFound
	}

	return nil
}

// AppendHistory добавляет запись в append-only журнал статусов
func (r *Repository) AppendHistory(ctx context.Context, entry *domain.HistoryEntry) (*domain.HistoryEntry, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("appointment_history").
		Columns(
			"appointment_id",
			"status",
			"actor_id",
			"actor_role",
			"notes",
			"reason",
			"request_id",
		).
		Values(
			entry.AppointmentID,
			entry.Status,
			entry.ActorID,
			entry.ActorRole,
			entry.Notes,
			entry.Reason,
			entry.RequestID,
		).
		Suffix("RETURNING id, created_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: AppendHistory - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(&entry.ID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("%w: AppendHistory - execute insert: %v", ErrExecQuery, err)
	}

	entry.CreatedAt = createdAt.Time

	return entry, nil
}

// GetHistory возвращает журнал статусов записи в хронологическом порядке
func (r *Repository) GetHistory(ctx context.Context, appointmentID int64) ([]*domain.HistoryEntry, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := historySelect().
		Where(squirrel.Eq{"appointment_id": appointmentID}).
		OrderBy("id ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetHistory - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetHistory - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	entries := make([]*domain.HistoryEntry, 0)
	for rows.Next() {
		entry, err := scanHistoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: GetHistory - scan row: %v", ErrScanRow, err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetHistory - rows error: %v", ErrScanRow, err)
	}

	return entries, nil
}

// GetLatestHistory возвращает последнюю запись журнала
func (r *Repository) GetLatestHistory(ctx context.Context, appointmentID int64) (*domain.HistoryEntry, error) {
	return r.latestHistoryWhere(ctx, squirrel.Eq{"appointment_id": appointmentID}, "GetLatestHistory")
}

// GetLatestHistoryByStatus возвращает последнюю запись журнала с указанным статусом
// Используется проверкой разделения обязанностей: кто создал приёмку
func (r *Repository) GetLatestHistoryByStatus(ctx context.Context, appointmentID int64, status domain.DetailedStatus) (*domain.HistoryEntry, error) {
	return r.latestHistoryWhere(ctx, squirrel.Eq{
		"appointment_id": appointmentID,
		"status":         status,
	}, "GetLatestHistoryByStatus")
}

func (r *Repository) latestHistoryWhere(ctx context.Context, where squirrel.Eq, method string) (*domain.HistoryEntry, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := historySelect().
		Where(where).
		OrderBy("id DESC").
		Limit(1).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %v", ErrBuildQuery, method, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s - execute query: %v", ErrExecQuery, method, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("%w: %s - rows error: %v", ErrScanRow, method, err)
		}
		return nil, ErrHistoryNotFound
	}

	entry, err := scanHistoryRow(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan row: %v", ErrScanRow, method, err)
	}

	return entry, nil
}

func historySelect() squirrel.SelectBuilder {
	return psqlbuilder.Select(
		"id",
		"appointment_id",
		"status",
		"actor_id",
		"actor_role",
		"notes",
		"reason",
		"request_id",
		"created_at",
	).From("appointment_history")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistoryRow(row rowScanner) (*domain.HistoryEntry, error) {
	var entry domain.HistoryEntry
	var createdAt sql.NullTime

	err := row.Scan(
		&entry.ID,
		&entry.AppointmentID,
		&entry.Status,
		&entry.ActorID,
		&entry.ActorRole,
		&entry.Notes,
		&entry.Reason,
		&entry.RequestID,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	entry.CreatedAt = createdAt.Time
	return &entry, nil
}

func (r *Repository) scanAppointment(row rowScanner) (*domain.Appointment, error) {
	var appt domain.Appointment
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&appt.ID,
		&appt.CustomerID,
		&appt.TechnicianID,
		&appt.CreatedBy,
		&appt.VehicleBrand,
		&appt.VehicleModel,
		&appt.VehicleLicensePlate,
		&appt.ServiceName,
		&appt.DetailedStatus,
		&appt.ScheduledAt,
		&appt.Priority,
		&appt.RescheduleCount,
		&appt.NoShowCount,
		&appt.StatusVersion,
		&appt.Notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	appt.CreatedAt = createdAt.Time
	appt.UpdatedAt = updatedAt.Time

	return &appt, nil
}

// scanAppointments сканирует результаты запроса в слайс записей
func (r *Repository) scanAppointments(rows *sql.Rows) ([]*domain.Appointment, error) {
	appointments := make([]*domain.Appointment, 0)

	for rows.Next() {
		appt, err := r.scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanAppointments - scan row: %v", ErrScanRow, err)
		}
		appointments = append(appointments, appt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanAppointments - rows error: %v", ErrScanRow, err)
	}

	return appointments, nil
}
