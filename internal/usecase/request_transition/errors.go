package request_transition

import "errors"

var (
	// ErrAppointmentNotFound возвращается, когда запись не найдена
	ErrAppointmentNotFound = errors.New("request_transition: appointment not found")

	// ErrUnknownStatus возвращается при неизвестном целевом статусе
	ErrUnknownStatus = errors.New("request_transition: unknown target status")

	// ErrTransitionNotAllowed возвращается, когда переход запрещён графом
	// статусов или ролью актора
	ErrTransitionNotAllowed = errors.New("request_transition: transition not allowed")

	// ErrWindowExpired возвращается, когда клиентское временное окно истекло
	ErrWindowExpired = errors.New("request_transition: time window expired")

	// ErrRescheduleLimit возвращается при исчерпании лимита переносов
	ErrRescheduleLimit = errors.New("request_transition: reschedule limit reached")

	// ErrSelfApproval возвращается, когда автор приёмки пытается сам её утвердить
	ErrSelfApproval = errors.New("request_transition: reception cannot be approved by its creator")

	// ErrConflict возвращается, когда конкурентное обновление выиграло гонку
	// и повторы исчерпаны
	ErrConflict = errors.New("request_transition: concurrent status update conflict")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("request_transition: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("request_transition: internal error")
)
