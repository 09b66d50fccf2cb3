package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
)

// 14:00 внутри рабочего окна 08:00-18:00
var testNow = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

func testConfig() Config {
	return Config{
		QuietHoursStart:      "08:00",
		QuietHoursEnd:        "18:00",
		PaymentPushThreshold: 1000,
		DedupWindow:          5 * time.Minute,
	}
}

func newTestRouter(at time.Time) *Router {
	r := New(testConfig(), NewMemoryDedupStore(5*time.Minute), nopLogger{})
	r.timeProvider = fixedClock{t: at}
	return r
}

func statusEvent() domain.Event {
	return domain.Event{
		ID:            "evt-1",
		Type:          domain.EventAppointmentStatusChanged,
		AppointmentID: 1,
		CustomerID:    100,
		TechnicianID:  ptr.Ptr(int64(7)),
		FromStatus:    domain.StatusPending,
		ToStatus:      domain.StatusConfirmed,
		CoreStatus:    domain.CoreScheduled,
		ActorID:       2,
		ActorRole:     domain.RoleStaff,
		Priority:      domain.PriorityNormal,
		OccurredAt:    testNow,
	}
}

var everyone = []Recipient{
	{ID: 100, Role: domain.RoleCustomer},  // клиент записи
	{ID: 150, Role: domain.RoleCustomer},  // посторонний клиент
	{ID: 7, Role: domain.RoleTechnician},  // назначенный механик
	{ID: 9, Role: domain.RoleTechnician},  // другой механик
	{ID: 2, Role: domain.RoleStaff},       // актор события
	{ID: 3, Role: domain.RoleStaff},
	{ID: 4, Role: domain.RoleAdmin},
}

func recipientIDs(notifications []domain.Notification) []int64 {
	ids := make([]int64, 0, len(notifications))
	for _, n := range notifications {
		ids = append(ids, n.RecipientID)
	}
	return ids
}

func TestRoute_StatusChangedInvolvement(t *testing.T) {
	r := newTestRouter(testNow)

	notifications := r.Route(statusEvent(), everyone)

	// клиент записи, её механик и персонал; актор и посторонние исключены
	assert.ElementsMatch(t, []int64{100, 7, 3, 4}, recipientIDs(notifications))
}

func TestRoute_StaffOnlyEventTypes(t *testing.T) {
	for _, eventType := range []domain.EventType{
		domain.EventAppointmentCreated,
		domain.EventPartsRequested,
	} {
		r := newTestRouter(testNow)
		event := statusEvent()
		event.Type = eventType
		event.ActorID = 7

		notifications := r.Route(event, everyone)
		assert.ElementsMatch(t, []int64{2, 3, 4}, recipientIDs(notifications), "type=%s", eventType)
	}
}

func TestRoute_SelfExclusion(t *testing.T) {
	r := newTestRouter(testNow)
	event := statusEvent()
	event.ActorID = 100 // клиент сам отменил запись

	notifications := r.Route(event, everyone)
	for _, n := range notifications {
		assert.NotEqual(t, int64(100), n.RecipientID)
	}
}

func TestRoute_QuietHours(t *testing.T) {
	event := statusEvent()
	event.Type = domain.EventPartsRequested
	event.ActorID = 7
	staff := []Recipient{{ID: 3, Role: domain.RoleStaff}}

	// в рабочее время запчасти идут с push
	r := newTestRouter(testNow)
	notifications := r.Route(event, staff)
	require.Len(t, notifications, 1)
	assert.True(t, notifications[0].Push)

	// ночью push подавляется, уведомление остаётся
	night := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	r = newTestRouter(night)
	event.OccurredAt = night
	notifications = r.Route(event, staff)
	require.Len(t, notifications, 1)
	assert.False(t, notifications[0].Push)

	// срочные пробивают тихие часы
	event.Priority = domain.PriorityUrgent
	r = newTestRouter(night)
	notifications = r.Route(event, staff)
	require.Len(t, notifications, 1)
	assert.True(t, notifications[0].Push)
}

func TestRoute_PaymentThreshold(t *testing.T) {
	r := newTestRouter(testNow)
	staff := []Recipient{{ID: 3, Role: domain.RoleStaff}}

	event := statusEvent()
	event.Type = domain.EventPaymentReceived
	event.Amount = 500 // ниже порога 1000

	notifications := r.Route(event, staff)
	require.Len(t, notifications, 1)
	assert.False(t, notifications[0].Push)

	event.ID = "evt-2"
	event.AppointmentID = 2
	event.Amount = 2500
	notifications = r.Route(event, staff)
	require.Len(t, notifications, 1)
	assert.True(t, notifications[0].Push)
}

func TestRoute_Dedup(t *testing.T) {
	r := newTestRouter(testNow)
	event := statusEvent()

	first := r.Route(event, everyone)
	require.NotEmpty(t, first)

	// то же событие доставлено повторно (at-least-once): дубликат гасится
	second := r.Route(event, everyone)
	assert.Empty(t, second)

	// другое событие по той же записи проходит
	event.Type = domain.EventPartsRequested
	third := r.Route(event, everyone)
	assert.NotEmpty(t, third)
}

func TestMemoryDedupStore_TTL(t *testing.T) {
	store := NewMemoryDedupStore(5 * time.Minute)

	assert.True(t, store.MarkSeen("k", testNow))
	assert.False(t, store.MarkSeen("k", testNow.Add(time.Minute)))

	// после истечения окна ключ снова свежий
	assert.True(t, store.MarkSeen("k", testNow.Add(6*time.Minute)))
}

func TestRoute_UnknownEventType(t *testing.T) {
	r := newTestRouter(testNow)
	event := statusEvent()
	event.Type = "mystery.event"

	assert.Empty(t, r.Route(event, everyone))
}
