// Package statusmodel описывает граф статусов записи на обслуживание:
// какие переходы существуют и какие роли вправе их запрашивать.
// Модель - чистое отношение (from, to, role); правила, зависящие от
// личности актора или времени, живут уровнем выше.
package statusmodel

import "github.com/m04kA/SMC-AppointmentService/internal/domain"

// transition одно ребро графа статусов с допущенными ролями
type transition struct {
	from  domain.DetailedStatus
	to    domain.DetailedStatus
	roles []domain.Role
}

var (
	staffOnly     = []domain.Role{domain.RoleStaff, domain.RoleAdmin}
	withCustomer  = []domain.Role{domain.RoleCustomer, domain.RoleStaff, domain.RoleAdmin}
	withMechanic  = []domain.Role{domain.RoleTechnician, domain.RoleStaff, domain.RoleAdmin}
)

// transitions полный список разрешённых переходов
// Всё, чего здесь нет, запрещено для всех ролей
var transitions = []transition{
	{domain.StatusPending, domain.StatusConfirmed, staffOnly},
	{domain.StatusPending, domain.StatusCancelled, withCustomer},
	{domain.StatusPending, domain.StatusRescheduled, withCustomer},

	{domain.StatusConfirmed, domain.StatusCustomerArrived, staffOnly},
	{domain.StatusConfirmed, domain.StatusCancelled, withCustomer},
	{domain.StatusConfirmed, domain.StatusRescheduled, withCustomer},
	{domain.StatusConfirmed, domain.StatusNoShow, staffOnly},

	{domain.StatusRescheduled, domain.StatusConfirmed, staffOnly},
	{domain.StatusRescheduled, domain.StatusCancelled, withCustomer},

	{domain.StatusCustomerArrived, domain.StatusReceptionCreated, withMechanic},

	{domain.StatusReceptionCreated, domain.StatusReceptionApproved, staffOnly},

	{domain.StatusReceptionApproved, domain.StatusInProgress, withMechanic},
	{domain.StatusReceptionApproved, domain.StatusPartsInsufficient, withMechanic},

	{domain.StatusPartsInsufficient, domain.StatusWaitingForParts, staffOnly},
	{domain.StatusPartsInsufficient, domain.StatusRescheduled, staffOnly},

	{domain.StatusWaitingForParts, domain.StatusInProgress, withMechanic},

	{domain.StatusInProgress, domain.StatusPartsRequested, withMechanic},
	{domain.StatusInProgress, domain.StatusWaitingForParts, withMechanic},
	{domain.StatusInProgress, domain.StatusCompleted, withMechanic},

	{domain.StatusPartsRequested, domain.StatusInProgress, withMechanic},
	{domain.StatusPartsRequested, domain.StatusWaitingForParts, staffOnly},

	{domain.StatusCompleted, domain.StatusInvoiced, staffOnly},
}

// coarse проекция детального статуса в клиентский
var coarse = map[domain.DetailedStatus]domain.CoreStatus{
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

// AllStatuses все известные детальные статусы
var AllStatuses = []domain.DetailedStatus{
	domain.StatusPending,
	domain.StatusConfirmed,
	domain.StatusRescheduled,
	domain.StatusCustomerArrived,
	domain.StatusReceptionCreated,
	domain.StatusReceptionApproved,
	domain.StatusInProgress,
	domain.StatusPartsRequested,
	domain.StatusPartsInsufficient,
	domain.StatusWaitingForParts,
	domain.StatusCompleted,
	domain.StatusInvoiced,
	domain.StatusCancelled,
	domain.StatusNoShow,
}

// IsKnownStatus возвращает true для известного детального статуса
func IsKnownStatus(s domain.DetailedStatus) bool {
	_, ok := coarse[s]
	return ok
}

// IsLegalTransition проверяет, разрешён ли переход from -> to для роли
func IsLegalTransition(from, to domain.DetailedStatus, role domain.Role) bool {
	for _, t := range transitions {
		if t.from != from || t.to != to {
			continue
		}
		for _, r := range t.roles {
			if r == role {
				return true
			}
		}
		return false
	}
	return false
}

// TransitionExists возвращает true, если ребро from -> to есть в графе
// независимо от роли
func TransitionExists(from, to domain.DetailedStatus) bool {
	for _, t := range transitions {
		if t.from == from && t.to == to {
			return true
		}
	}
	return false
}

// NextLegalStatuses возвращает список статусов, в которые роль может
// перевести запись из текущего статуса
func NextLegalStatuses(from domain.DetailedStatus, role domain.Role) []domain.DetailedStatus {
	next := make([]domain.DetailedStatus, 0)
	for _, t := range transitions {
		if t.from != from {
			continue
		}
		for _, r := range t.roles {
			if r == role {
				next = append(next, t.to)
				break
			}
		}
	}
	return next
}

// CoarseStatus проецирует детальный статус в клиентский
// Проекция тотальна: для любого известного статуса есть значение
func CoarseStatus(s domain.DetailedStatus) domain.CoreStatus {
	return coarse[s]
}

// IsTerminal возвращает true для финальных статусов
func IsTerminal(s domain.DetailedStatus) bool {
	return s == domain.StatusCancelled ||
		s == domain.StatusNoShow ||
		s == domain.StatusInvoiced
}
