// Package registry учитывает активные realtime-подключения пользователей
// и их подписки на комнаты.
package registry

import (
	"fmt"
	"sync"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// Conn абстракция над транспортным соединением
type Conn interface {
	Send(data []byte) error
	Close() error
}

// Identity владелец подключения
type Identity struct {
	UserID int64
	Role   domain.Role
}

// Session одно подключение пользователя с его подписками
type Session struct {
	ID       int64
	Identity Identity
	Conn     Conn

	rooms map[string]struct{}
}

// Registry потокобезопасный реестр подключений.
// Один пользователь может держать несколько сессий (несколько вкладок),
// комнаты группируют сессии для широковещательной доставки.
type Registry struct {
	mu       sync.RWMutex
	nextID   int64
	sessions map[int64]*Session
	byUser   map[int64]map[int64]*Session
	rooms    map[string]map[int64]*Session
}

// New создает пустой реестр
func New() *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
		byUser:   make(map[int64]map[int64]*Session),
		rooms:    make(map[string]map[int64]*Session),
	}
}

// AppointmentRoom имя комнаты записи
func AppointmentRoom(appointmentID int64) string {
	return fmt.Sprintf("appointment:%d", appointmentID)
}

// RoleRoom имя ролевой комнаты
func RoleRoom(role domain.Role) string {
	return fmt.Sprintf("role:%s", role)
}

// Connect регистрирует подключение и возвращает сессию
func (r *Registry) Connect(identity Identity, conn Conn) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	session := &Session{
		ID:       r.nextID,
		Identity: identity,
		Conn:     conn,
		rooms:    make(map[string]struct{}),
	}

	r.sessions[session.ID] = session
	if r.byUser[identity.UserID] == nil {
		r.byUser[identity.UserID] = make(map[int64]*Session)
	}
	r.byUser[identity.UserID][session.ID] = session

	return session
}

// Disconnect снимает сессию с учета и выводит её из всех комнат
func (r *Registry) Disconnect(session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.ID]; !ok {
		return
	}

	for room := range session.rooms {
		r.leaveRoom(session, room)
	}

	delete(r.sessions, session.ID)
	if userSessions, ok := r.byUser[session.Identity.UserID]; ok {
		delete(userSessions, session.ID)
		if len(userSessions) == 0 {
			delete(r.byUser, session.Identity.UserID)
		}
	}
}

// Join добавляет сессию в комнату
func (r *Registry) Join(session *Session, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.ID]; !ok {
		return
	}

	session.rooms[room] = struct{}{}
	if r.rooms[room] == nil {
		r.rooms[room] = make(map[int64]*Session)
	}
	r.rooms[room][session.ID] = session
}

// Leave выводит сессию из комнаты
func (r *Registry) Leave(session *Session, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(session.rooms, room)
	r.leaveRoom(session, room)
}

// leaveRoom должен вызываться под блокировкой
func (r *Registry) leaveRoom(session *Session, room string) {
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, session.ID)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// IsOnline проверяет, есть ли у пользователя хотя бы одна сессия
func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser[userID]) > 0
}

// Online возвращает снимок подключенных пользователей
func (r *Registry) Online() []Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[int64]struct{}, len(r.byUser))
	identities := make([]Identity, 0, len(r.byUser))
	for _, userSessions := range r.byUser {
		for _, session := range userSessions {
			if _, ok := seen[session.Identity.UserID]; ok {
				continue
			}
			seen[session.Identity.UserID] = struct{}{}
			identities = append(identities, session.Identity)
		}
	}
	return identities
}

// Broadcast доставляет сообщение всем сессиям комнаты.
// Возвращает число успешных доставок
func (r *Registry) Broadcast(room string, data []byte) int {
	r.mu.RLock()
	members := make([]*Session, 0, len(r.rooms[room]))
	for _, session := range r.rooms[room] {
		members = append(members, session)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, session := range members {
		if err := session.Conn.Send(data); err == nil {
			delivered++
		}
	}
	return delivered
}

// Unicast доставляет сообщение всем сессиям пользователя.
// Офлайн-пользователь не ошибка: возвращается ноль доставок
func (r *Registry) Unicast(userID int64, data []byte) int {
	r.mu.RLock()
	targets := make([]*Session, 0, len(r.byUser[userID]))
	for _, session := range r.byUser[userID] {
		targets = append(targets, session)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, session := range targets {
		if err := session.Conn.Send(data); err == nil {
			delivered++
		}
	}
	return delivered
}
