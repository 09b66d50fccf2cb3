package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Level уровень логирования
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel разбирает уровень логирования из строки конфигурации
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %q", s)
	}
}

// Logger простой уровневый логгер поверх стандартного log.Logger
// Пишет в файл, если указан путь, иначе в stdout
type Logger struct {
	level Level
	out   *log.Logger
	file  *os.File
}

// New создает логгер
// file - путь к файлу логов (пустая строка = stdout)
// level - минимальный уровень ("debug", "info", "warn", "error")
func New(file string, level string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	l := &Logger{level: lvl}

	if file == "" {
		l.out = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)
		return l, nil
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", file, err)
	}
	l.file = f
	l.out = log.New(f, "", log.LstdFlags|log.Lmicroseconds)
	return l, nil
}

// Close закрывает файл логов, если он был открыт
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Debug логирует сообщение уровня DEBUG
func (l *Logger) Debug(format string, args ...any) {
	l.write(LevelDebug, "DEBUG", format, args...)
}

// Info логирует сообщение уровня INFO
func (l *Logger) Info(format string, args ...any) {
	l.write(LevelInfo, "INFO", format, args...)
}

// Warn логирует сообщение уровня WARN
func (l *Logger) Warn(format string, args ...any) {
	l.write(LevelWarn, "WARN", format, args...)
}

// Error логирует сообщение уровня ERROR
func (l *Logger) Error(format string, args ...any) {
	l.write(LevelError, "ERROR", format, args...)
}

// Fatal логирует сообщение уровня ERROR и завершает процесс
func (l *Logger) Fatal(format string, args ...any) {
	l.write(LevelError, "FATAL", format, args...)
	if l.file != nil {
		_ = l.file.Close()
	}
	os.Exit(1)
}

func (l *Logger) write(lvl Level, tag string, format string, args ...any) {
	if lvl < l.level {
		return
	}
	l.out.Printf("[%s] %s", tag, fmt.Sprintf(format, args...))
}
