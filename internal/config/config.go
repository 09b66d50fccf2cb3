// Package config загружает конфигурацию сервиса из TOML-файла
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config конфигурация сервиса
type Config struct {
	Server        ServerConfig        `toml:"server"`
	Database      DatabaseConfig      `toml:"database"`
	Logs          LogsConfig          `toml:"logs"`
	Metrics       MetricsConfig       `toml:"metrics"`
	StaffService  StaffServiceConfig  `toml:"staff_service"`
	Workflow      WorkflowConfig      `toml:"workflow"`
	Notifications NotificationsConfig `toml:"notifications"`
	WebSocket     WebSocketConfig     `toml:"websocket"`
}

// ServerConfig настройки HTTP-сервера
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`     // секунды
	WriteTimeout    int `toml:"write_timeout"`    // секунды
	IdleTimeout     int `toml:"idle_timeout"`     // секунды
	ShutdownTimeout int `toml:"shutdown_timeout"` // секунды
}

// DatabaseConfig настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"` // секунды
}

// DSN собирает строку подключения
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// LogsConfig настройки логирования
type LogsConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// MetricsConfig настройки метрик Prometheus
type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

// StaffServiceConfig настройки интеграции с сервисом сотрудников
type StaffServiceConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"` // секунды
}

// WorkflowConfig настройки правил переходов
type WorkflowConfig struct {
	RescheduleMinHours int `toml:"reschedule_min_hours"`
	CancelMinHours     int `toml:"cancel_min_hours"`
	MaxRescheduleCount int `toml:"max_reschedule_count"`
	ConflictRetries    int `toml:"conflict_retries"`
}

// NotificationsConfig настройки маршрутизации уведомлений
type NotificationsConfig struct {
	QuietHoursStart      string  `toml:"quiet_hours_start"` // "08:00"
	QuietHoursEnd        string  `toml:"quiet_hours_end"`   // "18:00"
	PaymentPushThreshold float64 `toml:"payment_push_threshold"`
	DedupWindowMinutes   int     `toml:"dedup_window_minutes"`
}

// WebSocketConfig настройки WebSocket-шлюза
type WebSocketConfig struct {
	HeartbeatSeconds    int `toml:"heartbeat_seconds"`
	WriteTimeoutSeconds int `toml:"write_timeout_seconds"`
}

// Load читает конфигурацию из файла
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: Load - failed to decode %s: %w", path, err)
	}
	return &cfg, nil
}
