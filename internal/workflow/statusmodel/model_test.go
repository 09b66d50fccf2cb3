package statusmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

var allRoles = []domain.Role{
	domain.RoleCustomer,
	domain.RoleTechnician,
	domain.RoleStaff,
	domain.RoleAdmin,
}

func TestIsLegalTransition_Table(t *testing.T) {
	cases := []struct {
		from, to domain.DetailedStatus
		role     domain.Role
		want     bool
	}{
		// happy-path forward chain for staff
		{domain.StatusPending, domain.StatusConfirmed, domain.RoleStaff, true},
		{domain.StatusConfirmed, domain.StatusCustomerArrived, domain.RoleStaff, true},
		{domain.StatusCustomerArrived, domain.StatusReceptionCreated, domain.RoleTechnician, true},
		{domain.StatusReceptionCreated, domain.StatusReceptionApproved, domain.RoleStaff, true},
		{domain.StatusReceptionApproved, domain.StatusInProgress, domain.RoleTechnician, true},
		{domain.StatusInProgress, domain.StatusCompleted, domain.RoleTechnician, true},
		{domain.StatusCompleted, domain.StatusInvoiced, domain.RoleStaff, true},

		// customer can cancel and reschedule early states
		{domain.StatusPending, domain.StatusCancelled, domain.RoleCustomer, true},
		{domain.StatusPending, domain.StatusRescheduled, domain.RoleCustomer, true},
		{domain.StatusConfirmed, domain.StatusCancelled, domain.RoleCustomer, true},
		{domain.StatusConfirmed, domain.StatusRescheduled, domain.RoleCustomer, true},
		{domain.StatusRescheduled, domain.StatusCancelled, domain.RoleCustomer, true},

		// customer cannot do workshop-side operations
		{domain.StatusPending, domain.StatusConfirmed, domain.RoleCustomer, false},
		{domain.StatusConfirmed, domain.StatusCustomerArrived, domain.RoleCustomer, false},
		{domain.StatusConfirmed, domain.StatusNoShow, domain.RoleCustomer, false},
		{domain.StatusCustomerArrived, domain.StatusReceptionCreated, domain.RoleCustomer, false},
		{domain.StatusInProgress, domain.StatusCompleted, domain.RoleCustomer, false},
		{domain.StatusCompleted, domain.StatusInvoiced, domain.RoleCustomer, false},

		// technician cannot approve receptions or confirm appointments
		{domain.StatusReceptionCreated, domain.StatusReceptionApproved, domain.RoleTechnician, false},
		{domain.StatusPending, domain.StatusConfirmed, domain.RoleTechnician, false},
		{domain.StatusConfirmed, domain.StatusNoShow, domain.RoleTechnician, false},
		{domain.StatusPartsInsufficient, domain.StatusWaitingForParts, domain.RoleTechnician, false},
		{domain.StatusPartsRequested, domain.StatusWaitingForParts, domain.RoleTechnician, false},

		// parts loop
		{domain.StatusInProgress, domain.StatusPartsRequested, domain.RoleTechnician, true},
		{domain.StatusPartsRequested, domain.StatusInProgress, domain.RoleTechnician, true},
		{domain.StatusPartsRequested, domain.StatusWaitingForParts, domain.RoleStaff, true},
		{domain.StatusWaitingForParts, domain.StatusInProgress, domain.RoleTechnician, true},
		{domain.StatusReceptionApproved, domain.StatusPartsInsufficient, domain.RoleTechnician, true},
		{domain.StatusPartsInsufficient, domain.StatusRescheduled, domain.RoleStaff, true},

		// no skipping states, even for admin
		{domain.StatusPending, domain.StatusInProgress, domain.RoleAdmin, false},
		{domain.StatusPending, domain.StatusCompleted, domain.RoleAdmin, false},
		{domain.StatusConfirmed, domain.StatusInProgress, domain.RoleAdmin, false},
		{domain.StatusCustomerArrived, domain.StatusInProgress, domain.RoleAdmin, false},

		// terminal states have no outgoing edges
		{domain.StatusCancelled, domain.StatusPending, domain.RoleAdmin, false},
		{domain.StatusNoShow, domain.StatusConfirmed, domain.RoleAdmin, false},
		{domain.StatusInvoiced, domain.StatusCompleted, domain.RoleAdmin, false},
	}

	for _, tc := range cases {
		got := IsLegalTransition(tc.from, tc.to, tc.role)
		assert.Equal(t, tc.want, got,
			"IsLegalTransition(%s, %s, %s)", tc.from, tc.to, tc.role)
	}
}

// TestIsLegalTransition_DefaultDeny перебирает все тройки (from, to, role):
// всё, чего нет в таблице переходов, должно быть запрещено
func TestIsLegalTransition_DefaultDeny(t *testing.T) {
	inTable := func(from, to domain.DetailedStatus, role domain.Role) bool {
		for _, tr := range transitions {
			if tr.from != from || tr.to != to {
				continue
			}
			for _, r := range tr.roles {
				if r == role {
					return true
				}
			}
		}
		return false
	}

	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			for _, role := range allRoles {
				want := inTable(from, to, role)
				got := IsLegalTransition(from, to, role)
				require.Equal(t, want, got,
					"IsLegalTransition(%s, %s, %s)", from, to, role)
			}
		}
	}
}

func TestIsLegalTransition_UnknownInputs(t *testing.T) {
	assert.False(t, IsLegalTransition("garbage", domain.StatusConfirmed, domain.RoleAdmin))
	assert.False(t, IsLegalTransition(domain.StatusPending, "garbage", domain.RoleAdmin))
	assert.False(t, IsLegalTransition(domain.StatusPending, domain.StatusConfirmed, "ghost"))
	assert.False(t, IsLegalTransition(domain.StatusPending, domain.StatusPending, domain.RoleAdmin))
}

func TestCoarseStatus_Total(t *testing.T) {
	expected := map[domain.DetailedStatus]domain.CoreStatus{
		domain.StatusPending:           domain.CoreScheduled,
		domain.StatusConfirmed:         domain.CoreScheduled,
		domain.StatusRescheduled:       domain.CoreScheduled,
		domain.StatusCustomerArrived:   domain.CoreCheckedIn,
		domain.StatusReceptionCreated:  domain.CoreCheckedIn,
		domain.StatusReceptionApproved: domain.CoreCheckedIn,
		domain.StatusInProgress:        domain.CoreInService,
		domain.StatusPartsRequested:    domain.CoreInService,
		domain.StatusPartsInsufficient: domain.CoreOnHold,
		domain.StatusWaitingForParts:   domain.CoreOnHold,
		domain.StatusCompleted:         domain.CoreReadyForPickup,
		domain.StatusInvoiced:          domain.CoreClosed,
		domain.StatusCancelled:         domain.CoreClosed,
		domain.StatusNoShow:            domain.CoreClosed,
	}

	require.Len(t, AllStatuses, 14)
	for _, s := range AllStatuses {
		require.True(t, IsKnownStatus(s), "status %s must be known", s)
		assert.Equal(t, expected[s], CoarseStatus(s), "coarse projection of %s", s)
	}
}

func TestNextLegalStatuses(t *testing.T) {
	next := NextLegalStatuses(domain.StatusInProgress, domain.RoleTechnician)
	assert.ElementsMatch(t, []domain.DetailedStatus{
		domain.StatusPartsRequested,
		domain.StatusWaitingForParts,
		domain.StatusCompleted,
	}, next)

	next = NextLegalStatuses(domain.StatusPending, domain.RoleCustomer)
	assert.ElementsMatch(t, []domain.DetailedStatus{
		domain.StatusCancelled,
		domain.StatusRescheduled,
	}, next)

	// terminal states offer nothing to anyone
	for _, s := range []domain.DetailedStatus{domain.StatusCancelled, domain.StatusNoShow, domain.StatusInvoiced} {
		for _, role := range allRoles {
			assert.Empty(t, NextLegalStatuses(s, role), "from=%s role=%s", s, role)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(domain.StatusCancelled))
	assert.True(t, IsTerminal(domain.StatusNoShow))
	assert.True(t, IsTerminal(domain.StatusInvoiced))
	assert.False(t, IsTerminal(domain.StatusCompleted))
	assert.False(t, IsTerminal(domain.StatusPending))
}
