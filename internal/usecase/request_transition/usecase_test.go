package request_transition

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	apptRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/workflow/permissions"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeRepo хранит записи в памяти и воспроизводит условное обновление репозитория
type fakeRepo struct {
	mu         sync.Mutex
	appts      map[int64]*domain.Appointment
	history    map[int64][]*domain.HistoryEntry
	nextHistID int64
}

func newFakeRepo(appts ...*domain.Appointment) *fakeRepo {
	r := &fakeRepo{
		appts:   make(map[int64]*domain.Appointment),
		history: make(map[int64][]*domain.HistoryEntry),
	}
	for _, a := range appts {
		copied := *a
		r.appts[a.ID] = &copied
	}
	return r
}

func (r *fakeRepo) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.appts[id]
	if !ok {
		return nil, apptRepo.ErrAppointmentNotFound
	}
	copied := *appt
	return &copied, nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id int64, from, to domain.DetailedStatus, version int64, incrementReschedule, incrementNoShow bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.appts[id]
	if !ok || appt.DetailedStatus != from || appt.StatusVersion != version {
		return apptRepo.ErrVersionConflict
	}
	appt.DetailedStatus = to
	appt.StatusVersion++
	if incrementReschedule {
		appt.RescheduleCount++
	}
	if incrementNoShow {
		appt.NoShowCount++
	}
	return nil
}

func (r *fakeRepo) AppendHistory(ctx context.Context, entry *domain.HistoryEntry) (*domain.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextHistID++
	entry.ID = r.nextHistID
	entry.CreatedAt = testNow
	r.history[entry.AppointmentID] = append(r.history[entry.AppointmentID], entry)
	return entry, nil
}

func (r *fakeRepo) GetLatestHistory(ctx context.Context, appointmentID int64) (*domain.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.history[appointmentID]
	if len(entries) == 0 {
		return nil, apptRepo.ErrHistoryNotFound
	}
	return entries[len(entries)-1], nil
}

func (r *fakeRepo) GetLatestHistoryByStatus(ctx context.Context, appointmentID int64, status domain.DetailedStatus) (*domain.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.history[appointmentID]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Status == status {
			return entries[i], nil
		}
	}
	return nil, apptRepo.ErrHistoryNotFound
}

func (r *fakeRepo) historyLen(id int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history[id])
}

// fakeTxManager выполняет функцию без реальной транзакции
type fakeTxManager struct{}

func (fakeTxManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeEmitter накапливает эмитированные события
type fakeEmitter struct {
	mu     sync.Mutex
	events []domain.Event
}

func (e *fakeEmitter) Emit(event domain.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *fakeEmitter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

func newTestUseCase(repo *fakeRepo, emitter *fakeEmitter) *UseCase {
	uc := NewUseCase(
		repo,
		permissions.NewPolicy(permissions.DefaultConfig()),
		fakeTxManager{},
		emitter,
		NopMetrics{},
		3,
		nopLogger{},
	)
	uc.timeProvider = fixedClock{t: testNow}
	return uc
}

func pendingAppointment(id int64) *domain.Appointment {
	return &domain.Appointment{
		ID:             id,
		CustomerID:     100,
		CreatedBy:      100,
		ServiceName:    "Oil change",
		DetailedStatus: domain.StatusPending,
		ScheduledAt:    testNow.Add(72 * time.Hour),
		Priority:       domain.PriorityNormal,
	}
}

func execute(t *testing.T, uc *UseCase, id int64, to domain.DetailedStatus, actor domain.Actor) *Response {
	t.Helper()
	resp, err := uc.Execute(context.Background(), &Request{
		AppointmentID: id,
		TargetStatus:  to,
		Actor:         actor,
	})
	require.NoError(t, err, "transition to %s by %d/%s", to, actor.ID, actor.Role)
	return resp
}

func TestExecute_HappyChain(t *testing.T) {
	repo := newFakeRepo(pendingAppointment(1))
	emitter := &fakeEmitter{}
	uc := newTestUseCase(repo, emitter)

	staff := domain.Actor{ID: 2, Role: domain.RoleStaff}
	mechanic := domain.Actor{ID: 7, Role: domain.RoleTechnician}
	approver := domain.Actor{ID: 3, Role: domain.RoleStaff}

	steps := []struct {
		to    domain.DetailedStatus
		actor domain.Actor
		core  domain.CoreStatus
	}{
		{domain.StatusConfirmed, staff, domain.CoreScheduled},
		{domain.StatusCustomerArrived, staff, domain.CoreCheckedIn},
		{domain.StatusReceptionCreated, mechanic, domain.CoreCheckedIn},
		{domain.StatusReceptionApproved, approver, domain.CoreCheckedIn},
		{domain.StatusInProgress, mechanic, domain.CoreInService},
		{domain.StatusCompleted, mechanic, domain.CoreReadyForPickup},
		{domain.StatusInvoiced, staff, domain.CoreClosed},
	}

	for i, step := range steps {
		resp := execute(t, uc, 1, step.to, step.actor)
		assert.Equal(t, step.to, resp.DetailedStatus)
		assert.Equal(t, step.core, resp.CoreStatus)
		assert.Equal(t, int64(i+1), resp.StatusVersion)
		assert.False(t, resp.Replayed)
	}

	assert.Equal(t, len(steps), repo.historyLen(1))
	assert.Equal(t, len(steps), emitter.count())

	// последнее событие - оплата счёта
	last := emitter.events[len(emitter.events)-1]
	assert.Equal(t, domain.EventPaymentReceived, last.Type)
	assert.Equal(t, domain.StatusCompleted, last.FromStatus)
	assert.Equal(t, domain.StatusInvoiced, last.ToStatus)
}

func TestExecute_CustomerCannotConfirm(t *testing.T) {
	repo := newFakeRepo(pendingAppointment(1))
	uc := newTestUseCase(repo, &fakeEmitter{})

	_, err := uc.Execute(context.Background(), &Request{
		AppointmentID: 1,
		TargetStatus:  domain.StatusConfirmed,
		Actor:         domain.Actor{ID: 100, Role: domain.RoleCustomer},
	})
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
	assert.Equal(t, 0, repo.historyLen(1))
}

func TestExecute_CustomerCancelWindowExpired(t *testing.T) {
	appt := pendingAppointment(1)
	appt.ScheduledAt = testNow.Add(time.Hour) // меньше двух часов до визита
	repo := newFakeRepo(appt)
	uc := newTestUseCase(repo, &fakeEmitter{})

	_, err := uc.Execute(context.Background(), &Request{
		AppointmentID: 1,
		TargetStatus:  domain.StatusCancelled,
		Actor:         domain.Actor{ID: 100, Role: domain.RoleCustomer},
	})
	assert.ErrorIs(t, err, ErrWindowExpired)

	// для персонала окно не действует
	resp := execute(t, uc, 1, domain.StatusCancelled, domain.Actor{ID: 2, Role: domain.RoleStaff})
	assert.Equal(t, domain.StatusCancelled, resp.DetailedStatus)
}

func TestExecute_RescheduleLimit(t *testing.T) {
	appt := pendingAppointment(1)
	appt.RescheduleCount = 3
	repo := newFakeRepo(appt)
	uc := newTestUseCase(repo, &fakeEmitter{})

	_, err := uc.Execute(context.Background(), &Request{
		AppointmentID: 1,
		TargetStatus:  domain.StatusRescheduled,
		Actor:         domain.Actor{ID: 100, Role: domain.RoleCustomer},
	})
	assert.ErrorIs(t, err, ErrRescheduleLimit)
}

func TestExecute_RescheduleIncrementsCounter(t *testing.T) {
	repo := newFakeRepo(pendingAppointment(1))
	uc := newTestUseCase(repo, &fakeEmitter{})

	execute(t, uc, 1, domain.StatusRescheduled, domain.Actor{ID: 100, Role: domain.RoleCustomer})

	stored, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.RescheduleCount)
}

func TestExecute_SelfApprovalForbidden(t *testing.T) {
	appt := pendingAppointment(1)
	appt.DetailedStatus = domain.StatusCustomerArrived
	repo := newFakeRepo(appt)
	uc := newTestUseCase(repo, &fakeEmitter{})

	// механик создаёт приёмку
	execute(t, uc, 1, domain.StatusReceptionCreated, domain.Actor{ID: 7, Role: domain.RoleTechnician})

	// тот же человек (теперь в роли staff) не может её утвердить
	_, err := uc.Execute(context.Background(), &Request{
		AppointmentID: 1,
		TargetStatus:  domain.StatusReceptionApproved,
		Actor:         domain.Actor{ID: 7, Role: domain.RoleStaff},
	})
	assert.ErrorIs(t, err, ErrSelfApproval)

	// другой сотрудник утверждает успешно
	resp := execute(t, uc, 1, domain.StatusReceptionApproved, domain.Actor{ID: 3, Role: domain.RoleStaff})
	assert.Equal(t, domain.StatusReceptionApproved, resp.DetailedStatus)
}

func TestExecute_IdempotentReplay(t *testing.T) {
	repo := newFakeRepo(pendingAppointment(1))
	emitter := &fakeEmitter{}
	uc := newTestUseCase(repo, emitter)

	req := &Request{
		AppointmentID: 1,
		TargetStatus:  domain.StatusConfirmed,
		Actor:         domain.Actor{ID: 2, Role: domain.RoleStaff},
		RequestID:     "req-abc",
	}

	first, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.DetailedStatus, second.DetailedStatus)
	assert.Equal(t, first.StatusVersion, second.StatusVersion)

	// повтор не добавляет записей журнала и событий
	assert.Equal(t, 1, repo.historyLen(1))
	assert.Equal(t, 1, emitter.count())
}

// TestExecute_ConcurrentExactlyOneWinner гоняет две конкурентные попытки
// одного перехода: выиграть должна ровно одна
func TestExecute_ConcurrentExactlyOneWinner(t *testing.T) {
	for i := 0; i < 20; i++ {
		repo := newFakeRepo(pendingAppointment(1))
		emitter := &fakeEmitter{}
		uc := newTestUseCase(repo, emitter)

		start := make(chan struct{})
		errs := make(chan error, 2)
		var wg sync.WaitGroup

		for g := 0; g < 2; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := uc.Execute(context.Background(), &Request{
					AppointmentID: 1,
					TargetStatus:  domain.StatusConfirmed,
					Actor:         domain.Actor{ID: 2, Role: domain.RoleStaff},
				})
				errs <- err
			}()
		}

		close(start)
		wg.Wait()
		close(errs)

		successes := 0
		for err := range errs {
			if err == nil {
				successes++
			} else {
				// проигравший после повтора видит уже применённый статус
				assert.ErrorIs(t, err, ErrTransitionNotAllowed)
			}
		}
		require.Equal(t, 1, successes, "iteration %d", i)

		stored, err := repo.GetByID(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusConfirmed, stored.DetailedStatus)
		assert.Equal(t, int64(1), stored.StatusVersion)
		assert.Equal(t, 1, repo.historyLen(1))
		assert.Equal(t, 1, emitter.count())
	}
}

func TestExecute_NotFound(t *testing.T) {
	uc := newTestUseCase(newFakeRepo(), &fakeEmitter{})

	_, err := uc.Execute(context.Background(), &Request{
		AppointmentID: 42,
		TargetStatus:  domain.StatusConfirmed,
		Actor:         domain.Actor{ID: 2, Role: domain.RoleStaff},
	})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestExecute_InvalidInput(t *testing.T) {
	uc := newTestUseCase(newFakeRepo(pendingAppointment(1)), &fakeEmitter{})
	ctx := context.Background()

	_, err := uc.Execute(ctx, &Request{
		AppointmentID: 1,
		TargetStatus:  "warp_drive",
		Actor:         domain.Actor{ID: 2, Role: domain.RoleStaff},
	})
	assert.ErrorIs(t, err, ErrUnknownStatus)

	_, err = uc.Execute(ctx, &Request{
		AppointmentID: 1,
		TargetStatus:  domain.StatusConfirmed,
		Actor:         domain.Actor{ID: 2, Role: "ghost"},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = uc.Execute(ctx, &Request{
		AppointmentID: 0,
		TargetStatus:  domain.StatusConfirmed,
		Actor:         domain.Actor{ID: 2, Role: domain.RoleStaff},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestExecute_PartsRequestedEventType(t *testing.T) {
	appt := pendingAppointment(1)
	appt.DetailedStatus = domain.StatusInProgress
	repo := newFakeRepo(appt)
	emitter := &fakeEmitter{}
	uc := newTestUseCase(repo, emitter)

	execute(t, uc, 1, domain.StatusPartsRequested, domain.Actor{ID: 7, Role: domain.RoleTechnician})

	require.Equal(t, 1, emitter.count())
	assert.Equal(t, domain.EventPartsRequested, emitter.events[0].Type)
}
