package router

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// Recipient потенциальный получатель уведомления
type Recipient struct {
	ID   int64
	Role domain.Role
}

// DedupStore отслеживает уже доставленные уведомления
// MarkSeen возвращает true, если ключ встречается впервые
type DedupStore interface {
	MarkSeen(key string, now time.Time) bool
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
