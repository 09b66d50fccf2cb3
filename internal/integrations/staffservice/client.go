package staffservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Client клиент для работы со StaffService
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента StaffService
func NewClient(baseURL string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// GetStaffMember получает сотрудника по ID
func (c *Client) GetStaffMember(ctx context.Context, staffID int64) (*StaffMember, error) {
	url := fmt.Sprintf("%s/internal/staff/%d", c.baseURL, staffID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	// Обработка статус-кодов
	switch resp.StatusCode {
	case http.StatusOK:
		// Продолжаем обработку
	case http.StatusBadRequest:
		return nil, fmt.Errorf("%w: invalid staff ID format", ErrInvalidResponse)
	case http.StatusNotFound:
		return nil, ErrStaffNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	// Парсим ответ
	var member StaffMember
	if err := json.NewDecoder(resp.Body).Decode(&member); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	return &member, nil
}

// GetStaffMemberWithGracefulDegradation получает сотрудника с graceful degradation
// При недоступности StaffService возвращает ErrServiceDegraded, что позволяет
// создать запись без проверки механика вместо отказа клиенту
func (c *Client) GetStaffMemberWithGracefulDegradation(ctx context.Context, staffID int64) (*StaffMember, error) {
	member, err := c.GetStaffMember(ctx, staffID)
	if err != nil {
		// Критичную бизнес-ошибку (сотрудник не найден) пробрасываем дальше
		if errors.Is(err, ErrStaffNotFound) {
			c.log.Info("Staff member id=%d not found", staffID)
			return nil, err
		}

		// Для остальных ошибок (недоступность сервиса, timeout, ошибки парсинга)
		// применяем graceful degradation
		c.log.Error("StaffService unavailable, applying graceful degradation for staff_id=%d: %v", staffID, err)
		return nil, fmt.Errorf("%w: staff_id=%d, error=%v", ErrServiceDegraded, staffID, err)
	}

	return member, nil
}
