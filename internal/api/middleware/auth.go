// Package middleware общие HTTP-прослойки: аутентификация и метрики
package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"

	msgMissingIdentity = "отсутствуют заголовки идентификации"
	msgInvalidUserID   = "некорректный ID пользователя"
	msgUnknownRole     = "неизвестная роль пользователя"
)

type contextKey string

const actorKey contextKey = "actor"

// Auth извлекает пользователя из заголовков шлюза.
// Аутентификацию выполняет API-шлюз, сервис доверяет заголовкам
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userIDStr := r.Header.Get(headerUserID)
		roleStr := r.Header.Get(headerUserRole)
		if userIDStr == "" || roleStr == "" {
			handlers.RespondUnauthorized(w, msgMissingIdentity)
			return
		}

		userID, err := strconv.ParseInt(userIDStr, 10, 64)
		if err != nil || userID <= 0 {
			handlers.RespondUnauthorized(w, msgInvalidUserID)
			return
		}

		role := domain.Role(roleStr)
		if !role.IsValid() {
			handlers.RespondUnauthorized(w, msgUnknownRole)
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, domain.Actor{ID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetActor возвращает пользователя запроса из контекста
func GetActor(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok
}
