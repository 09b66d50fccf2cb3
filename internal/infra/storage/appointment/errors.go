package appointment

import "errors"

var (
	// ErrAppointmentNotFound возвращается, когда запись не найдена
	ErrAppointmentNotFound = errors.New("appointment.repository: appointment not found")

	// ErrVersionConflict возвращается, когда условное обновление статуса
	// не затронуло ни одной строки (статус или версия изменились конкурентно)
	ErrVersionConflict = errors.New("appointment.repository: status version conflict")

	// ErrHistoryNotFound возвращается, когда у записи нет записей истории
	ErrHistoryNotFound = errors.New("appointment.repository: history entry not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("appointment.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("appointment.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("appointment.repository: failed to scan row")
)
