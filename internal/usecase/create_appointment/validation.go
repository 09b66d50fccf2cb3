package create_appointment

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.Actor.ID <= 0 {
		return fmt.Errorf("%w: actor id must be positive", ErrInvalidInput)
	}

	if !req.Actor.Role.IsValid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, req.Actor.Role)
	}

	if req.CustomerID <= 0 {
		return fmt.Errorf("%w: customerID must be positive", ErrInvalidInput)
	}

	// Клиент может создавать записи только на себя
	if req.Actor.Role == domain.RoleCustomer && req.CustomerID != req.Actor.ID {
		return fmt.Errorf("%w: customer can only book for themselves", ErrInvalidInput)
	}

	if req.ServiceName == "" {
		return fmt.Errorf("%w: serviceName is required", ErrInvalidInput)
	}

	if req.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: scheduledAt is required", ErrInvalidInput)
	}

	if req.Priority != nil && !domain.Priority(*req.Priority).IsValid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *req.Priority)
	}

	if req.Notes != nil && len(*req.Notes) > domain.MaxNotesLength {
		return fmt.Errorf("%w: notes too long", ErrInvalidInput)
	}

	return nil
}

// validateScheduledAt проверяет, что время визита в будущем
func validateScheduledAt(scheduledAt, now time.Time) error {
	if !scheduledAt.After(now) {
		return ErrScheduledInPast
	}
	return nil
}
