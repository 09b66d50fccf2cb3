package create_appointment

import "errors"

var (
	// ErrTechnicianNotFound возвращается, когда назначаемый механик не найден
	ErrTechnicianNotFound = errors.New("create_appointment: technician not found")

	// ErrNotTechnician возвращается, когда назначаемый сотрудник не является механиком
	ErrNotTechnician = errors.New("create_appointment: staff member is not a technician")

	// ErrScheduledInPast возвращается, когда время визита уже прошло
	ErrScheduledInPast = errors.New("create_appointment: scheduled time is in the past")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("create_appointment: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_appointment: internal error")
)
