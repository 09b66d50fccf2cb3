package create_appointment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/staffservice"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeRepo struct {
	appts   []*domain.Appointment
	history []*domain.HistoryEntry
}

func (r *fakeRepo) Create(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	appt.ID = int64(len(r.appts) + 1)
	appt.CreatedAt = testNow
	appt.UpdatedAt = testNow
	r.appts = append(r.appts, appt)
	return appt, nil
}

func (r *fakeRepo) AppendHistory(ctx context.Context, entry *domain.HistoryEntry) (*domain.HistoryEntry, error) {
	entry.ID = int64(len(r.history) + 1)
	entry.CreatedAt = testNow
	r.history = append(r.history, entry)
	return entry, nil
}

type fakeStaffClient struct {
	members map[int64]*staffservice.StaffMember
	degrade bool
}

func (c *fakeStaffClient) GetStaffMemberWithGracefulDegradation(ctx context.Context, staffID int64) (*staffservice.StaffMember, error) {
	if c.degrade {
		return nil, fmt.Errorf("%w: staff_id=%d", staffservice.ErrServiceDegraded, staffID)
	}
	member, ok := c.members[staffID]
	if !ok {
		return nil, staffservice.ErrStaffNotFound
	}
	return member, nil
}

type fakeTxManager struct{}

func (fakeTxManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeEmitter struct {
	events []domain.Event
}

func (e *fakeEmitter) Emit(event domain.Event) {
	e.events = append(e.events, event)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

func newTestUseCase(repo *fakeRepo, staff *fakeStaffClient, emitter *fakeEmitter) *UseCase {
	uc := NewUseCase(repo, staff, fakeTxManager{}, emitter, nopLogger{})
	uc.timeProvider = fixedClock{t: testNow}
	return uc
}

func validRequest() *Request {
	return &Request{
		Actor:               domain.Actor{ID: 100, Role: domain.RoleCustomer},
		CustomerID:          100,
		ServiceName:         "Brake inspection",
		ScheduledAt:         testNow.Add(72 * time.Hour),
		VehicleBrand:        ptr.Ptr("Toyota"),
		VehicleModel:        ptr.Ptr("Corolla"),
		VehicleLicensePlate: ptr.Ptr("A123BC"),
	}
}

func TestExecute_CreatesPendingWithHistory(t *testing.T) {
	repo := &fakeRepo{}
	emitter := &fakeEmitter{}
	uc := newTestUseCase(repo, &fakeStaffClient{}, emitter)

	resp, err := uc.Execute(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, resp.DetailedStatus)
	assert.Equal(t, domain.CoreScheduled, resp.CoreStatus)
	assert.Equal(t, domain.PriorityNormal, resp.Priority)
	assert.Equal(t, "Toyota", *resp.VehicleBrand)

	// первая запись журнала создаётся вместе с записью
	require.Len(t, repo.history, 1)
	assert.Equal(t, resp.ID, repo.history[0].AppointmentID)
	assert.Equal(t, domain.StatusPending, repo.history[0].Status)
	assert.Equal(t, int64(100), repo.history[0].ActorID)

	// событие о создании для персонала
	require.Len(t, emitter.events, 1)
	assert.Equal(t, domain.EventAppointmentCreated, emitter.events[0].Type)
	assert.Equal(t, resp.ID, emitter.events[0].AppointmentID)
}

func TestExecute_TechnicianAssignment(t *testing.T) {
	staff := &fakeStaffClient{members: map[int64]*staffservice.StaffMember{
		7: {ID: 7, FullName: "Ivan", Role: "technician", Active: true},
		8: {ID: 8, FullName: "Olga", Role: "staff", Active: true},
	}}
	uc := newTestUseCase(&fakeRepo{}, staff, &fakeEmitter{})
	ctx := context.Background()

	req := validRequest()
	req.Actor = domain.Actor{ID: 2, Role: domain.RoleStaff}
	req.TechnicianID = ptr.Ptr(int64(7))

	resp, err := uc.Execute(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(7), *resp.TechnicianID)

	// не механик
	req2 := validRequest()
	req2.Actor = domain.Actor{ID: 2, Role: domain.RoleStaff}
	req2.TechnicianID = ptr.Ptr(int64(8))
	_, err = uc.Execute(ctx, req2)
	assert.ErrorIs(t, err, ErrNotTechnician)

	// неизвестный сотрудник
	req3 := validRequest()
	req3.Actor = domain.Actor{ID: 2, Role: domain.RoleStaff}
	req3.TechnicianID = ptr.Ptr(int64(99))
	_, err = uc.Execute(ctx, req3)
	assert.ErrorIs(t, err, ErrTechnicianNotFound)
}

func TestExecute_StaffServiceDegraded(t *testing.T) {
	staff := &fakeStaffClient{degrade: true}
	uc := newTestUseCase(&fakeRepo{}, staff, &fakeEmitter{})

	req := validRequest()
	req.Actor = domain.Actor{ID: 2, Role: domain.RoleStaff}
	req.TechnicianID = ptr.Ptr(int64(7))

	// при недоступном StaffService запись создаётся без проверки механика
	resp, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(7), *resp.TechnicianID)
}

func TestExecute_ScheduledInPast(t *testing.T) {
	uc := newTestUseCase(&fakeRepo{}, &fakeStaffClient{}, &fakeEmitter{})

	req := validRequest()
	req.ScheduledAt = testNow.Add(-time.Hour)
	_, err := uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrScheduledInPast)
}

func TestExecute_InvalidInput(t *testing.T) {
	uc := newTestUseCase(&fakeRepo{}, &fakeStaffClient{}, &fakeEmitter{})
	ctx := context.Background()

	// клиент бронирует на другого клиента
	req := validRequest()
	req.CustomerID = 200
	_, err := uc.Execute(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// пустое название услуги
	req = validRequest()
	req.ServiceName = ""
	_, err = uc.Execute(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// неизвестный приоритет
	req = validRequest()
	req.Priority = ptr.Ptr("cosmic")
	_, err = uc.Execute(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
