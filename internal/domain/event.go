package domain

import "time"

// EventType classifies workflow events emitted by the transition executor
type EventType string

const (
	EventAppointmentCreated       EventType = "appointment.created"
	EventAppointmentStatusChanged EventType = "appointment.status_changed"
	EventPartsRequested           EventType = "parts.requested"
	EventPaymentReceived          EventType = "payment.received"
)

// Event is an immutable fact about an appointment, produced after commit.
// It carries enough denormalized data for routing decisions so the router
// never has to load the aggregate.
type Event struct {
	ID            string // uuid
	Type          EventType
	AppointmentID int64
	CustomerID    int64
	TechnicianID  *int64

	FromStatus DetailedStatus
	ToStatus   DetailedStatus
	CoreStatus CoreStatus

	ActorID   int64
	ActorRole Role
	Priority  Priority

	// Amount is set for payment.received events only
	Amount float64

	OccurredAt time.Time
}

// Notification is a routed, per-recipient message ready for delivery
type Notification struct {
	RecipientID   int64     `json:"recipientId"`
	Type          EventType `json:"type"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	Priority      Priority  `json:"priority"`
	AppointmentID int64     `json:"appointmentId"`
	Push          bool      `json:"push"`
	CreatedAt     time.Time `json:"createdAt"`
}
