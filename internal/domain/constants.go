package domain

// Default workflow policy values
const (
	DefaultRescheduleMinHours = 24
	DefaultCancelMinHours     = 2
	DefaultMaxRescheduleCount = 3 // 0 = no cap
	DefaultConflictRetries    = 3
	DefaultDedupWindowMinutes = 5
)

// Business validation constants
const (
	MaxNotesLength  = 500
	MaxReasonLength = 500
)

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// TerminalStatuses список финальных статусов записи
// Из них нет переходов, и к ним не применяются клиентские действия
var TerminalStatuses = []DetailedStatus{
	StatusCancelled,
	StatusNoShow,
	StatusInvoiced,
}

// ClosedStatuses статусы, скрываемые из списков мастерской по умолчанию
var ClosedStatuses = []DetailedStatus{
	StatusCancelled,
	StatusNoShow,
	StatusInvoiced,
}
