package permissions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testAppointment(status domain.DetailedStatus, scheduledIn time.Duration) *domain.Appointment {
	return &domain.Appointment{
		ID:             1,
		CustomerID:     100,
		DetailedStatus: status,
		ScheduledAt:    testNow.Add(scheduledIn),
	}
}

func TestCheck_RescheduleWindow(t *testing.T) {
	p := NewPolicy(DefaultConfig())

	cases := []struct {
		name        string
		scheduledIn time.Duration
		allowed     bool
		reason      string
	}{
		{"well before window", 48 * time.Hour, true, ""},
		{"exactly 24h before start", 24 * time.Hour, true, ""},
		{"one minute inside window", 24*time.Hour - time.Minute, false, ReasonWindowExpired},
		{"one hour before start", time.Hour, false, ReasonWindowExpired},
		{"already started", -time.Hour, false, ReasonWindowExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			appt := testAppointment(domain.StatusConfirmed, tc.scheduledIn)
			d := p.Check(appt, ActionReschedule, testNow)
			assert.Equal(t, tc.allowed, d.Allowed)
			assert.Equal(t, tc.reason, d.Reason)
		})
	}
}

func TestCheck_CancelWindow(t *testing.T) {
	p := NewPolicy(DefaultConfig())

	cases := []struct {
		name        string
		scheduledIn time.Duration
		allowed     bool
		reason      string
	}{
		{"day before", 24 * time.Hour, true, ""},
		{"exactly 2h before start", 2 * time.Hour, true, ""},
		{"one minute inside window", 2*time.Hour - time.Minute, false, ReasonWindowExpired},
		{"already started", -time.Minute, false, ReasonWindowExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			appt := testAppointment(domain.StatusPending, tc.scheduledIn)
			d := p.Check(appt, ActionCancel, testNow)
			assert.Equal(t, tc.allowed, d.Allowed)
			assert.Equal(t, tc.reason, d.Reason)
		})
	}
}

func TestCheck_ClosedStatuses(t *testing.T) {
	p := NewPolicy(DefaultConfig())

	closed := []domain.DetailedStatus{
		domain.StatusCancelled,
		domain.StatusNoShow,
		domain.StatusInvoiced,
		domain.StatusCompleted,
	}

	for _, status := range closed {
		appt := testAppointment(status, 72*time.Hour)
		for _, action := range []Action{ActionReschedule, ActionCancel} {
			d := p.Check(appt, action, testNow)
			assert.False(t, d.Allowed, "status=%s action=%s", status, action)
			assert.Equal(t, ReasonTerminalStatus, d.Reason)
		}
	}
}

func TestCheck_RescheduleLimit(t *testing.T) {
	p := NewPolicy(Config{RescheduleMinHours: 24, CancelMinHours: 2, MaxRescheduleCount: 3})

	appt := testAppointment(domain.StatusConfirmed, 72*time.Hour)
	appt.RescheduleCount = 2
	assert.True(t, p.Check(appt, ActionReschedule, testNow).Allowed)

	appt.RescheduleCount = 3
	d := p.Check(appt, ActionReschedule, testNow)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonRescheduleLimit, d.Reason)

	// limit only applies to reschedule, cancel stays open
	assert.True(t, p.Check(appt, ActionCancel, testNow).Allowed)
}

func TestCheck_RescheduleLimitDisabled(t *testing.T) {
	p := NewPolicy(Config{RescheduleMinHours: 24, CancelMinHours: 2, MaxRescheduleCount: 0})

	appt := testAppointment(domain.StatusConfirmed, 72*time.Hour)
	appt.RescheduleCount = 50
	assert.True(t, p.Check(appt, ActionReschedule, testNow).Allowed)
}

func TestCheck_UnknownAction(t *testing.T) {
	p := NewPolicy(DefaultConfig())
	appt := testAppointment(domain.StatusConfirmed, 72*time.Hour)

	d := p.Check(appt, Action("repaint"), testNow)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUnknownAction, d.Reason)
}
