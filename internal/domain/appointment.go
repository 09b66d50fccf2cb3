package domain

import "time"

// DetailedStatus represents the fine-grained workshop status of an appointment
type DetailedStatus string

const (
	StatusPending           DetailedStatus = "pending"
	StatusConfirmed         DetailedStatus = "confirmed"
	StatusRescheduled       DetailedStatus = "rescheduled"
	StatusCustomerArrived   DetailedStatus = "customer_arrived"
	StatusReceptionCreated  DetailedStatus = "reception_created"
	StatusReceptionApproved DetailedStatus = "reception_approved"
	StatusInProgress        DetailedStatus = "in_progress"
	StatusPartsRequested    DetailedStatus = "parts_requested"
	StatusPartsInsufficient DetailedStatus = "parts_insufficient"
	StatusWaitingForParts   DetailedStatus = "waiting_for_parts"
	StatusCompleted         DetailedStatus = "completed"
	StatusInvoiced          DetailedStatus = "invoiced"
	StatusCancelled         DetailedStatus = "cancelled"
	StatusNoShow            DetailedStatus = "no_show"
)

// CoreStatus is the coarse customer-facing projection of a DetailedStatus
type CoreStatus string

const (
	CoreScheduled      CoreStatus = "scheduled"
	CoreCheckedIn      CoreStatus = "checked_in"
	CoreInService      CoreStatus = "in_service"
	CoreOnHold         CoreStatus = "on_hold"
	CoreReadyForPickup CoreStatus = "ready_for_pickup"
	CoreClosed         CoreStatus = "closed"
)

// Role represents the caller's role in the workshop
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleTechnician Role = "technician"
	RoleStaff      Role = "staff"
	RoleAdmin      Role = "admin"
)

// IsValid returns true if the role is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleTechnician, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// IsWorkshop returns true for roles acting on behalf of the workshop
func (r Role) IsWorkshop() bool {
	return r == RoleTechnician || r == RoleStaff || r == RoleAdmin
}

// Priority of an appointment or notification
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid returns true if the priority is one of the known values
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Actor identifies who performs an operation
type Actor struct {
	ID   int64
	Role Role
}

// Appointment represents a vehicle service appointment
type Appointment struct {
	ID           int64
	CustomerID   int64
	TechnicianID *int64 // assigned technician, nil until reception
	CreatedBy    int64

	// Denormalized vehicle data for history
	VehicleBrand        *string
	VehicleModel        *string
	VehicleLicensePlate *string

	ServiceName    string
	DetailedStatus DetailedStatus
	ScheduledAt    time.Time
	Priority       Priority

	RescheduleCount int
	NoShowCount     int

	// StatusVersion guards concurrent status updates (optimistic lock)
	StatusVersion int64

	Notes *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal returns true if the appointment reached a final status
func (a *Appointment) IsTerminal() bool {
	return a.DetailedStatus == StatusCancelled ||
		a.DetailedStatus == StatusNoShow ||
		a.DetailedStatus == StatusInvoiced
}

// IsInvolved returns true if the user participates in this appointment
func (a *Appointment) IsInvolved(userID int64) bool {
	if a.CustomerID == userID || a.CreatedBy == userID {
		return true
	}
	return a.TechnicianID != nil && *a.TechnicianID == userID
}

// HistoryEntry is one record of the append-only status audit trail
type HistoryEntry struct {
	ID            int64
	AppointmentID int64
	Status        DetailedStatus
	ActorID       int64
	ActorRole     Role
	Notes         *string
	Reason        *string
	RequestID     *string // idempotency nonce of the transition request
	CreatedAt     time.Time
}

// WorkshopFilter фильтр для списка записей мастерской
type WorkshopFilter struct {
	TechnicianID *int64          // Фильтр по назначенному механику (опционально)
	StartDate    *time.Time      // Начало периода (опционально)
	EndDate      *time.Time      // Конец периода (опционально)
	Status       *DetailedStatus // Фильтр по статусу (опционально)
	IncludeClosed bool           // Включать ли завершённые записи (cancelled, no_show, invoiced)
}
