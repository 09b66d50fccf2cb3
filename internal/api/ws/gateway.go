// Package ws поднимает WebSocket-шлюз realtime-уведомлений.
// Подключенный пользователь автоматически попадает в свою ролевую
// комнату, подписки на конкретные записи запрашиваются сообщениями
// и проходят проверку доступа.
package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/events/registry"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments"
)

const (
	actionSubscribe   = "subscribe"
	actionUnsubscribe = "unsubscribe"

	msgMissingIdentity = "отсутствует идентификация пользователя"
)

// Config настройки шлюза
type Config struct {
	HeartbeatInterval time.Duration
	WriteTimeout      time.Duration
}

// clientMessage входящее сообщение от клиента
type clientMessage struct {
	Action        string `json:"action"`
	AppointmentID int64  `json:"appointmentId"`
}

// serverMessage служебный ответ клиенту
type serverMessage struct {
	Kind          string `json:"kind"`
	AppointmentID int64  `json:"appointmentId,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Gateway HTTP-обработчик WebSocket-подключений
type Gateway struct {
	registry SessionRegistry
	access   AccessChecker
	metrics  MetricsRecorder
	logger   Logger
	cfg      Config
	upgrader websocket.Upgrader
}

// NewGateway создает шлюз
func NewGateway(reg SessionRegistry, access AccessChecker, metrics MetricsRecorder, cfg Config, logger Logger) *Gateway {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &Gateway{
		registry: reg,
		access:   access,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handle GET /ws
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		g.logger.Warn("GET /ws - Missing actor in context")
		handlers.RespondUnauthorized(w, msgMissingIdentity)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("GET /ws - Upgrade failed: actor_id=%d, error=%v", actor.ID, err)
		return
	}

	wrapped := &wsConn{conn: conn, writeTimeout: g.cfg.WriteTimeout}
	identity := registry.Identity{UserID: actor.ID, Role: actor.Role}
	session := g.registry.Connect(identity, wrapped)
	g.registry.Join(session, registry.RoleRoom(actor.Role))
	g.metrics.WSConnectionOpened(string(actor.Role))

	g.logger.Info("GET /ws - Connection opened: user_id=%d, role=%s, session_id=%d",
		actor.ID, actor.Role, session.ID)

	go g.heartbeat(wrapped)
	g.readLoop(r, session, wrapped)

	g.registry.Disconnect(session)
	g.metrics.WSConnectionClosed(string(actor.Role))
	_ = wrapped.Close()

	g.logger.Info("GET /ws - Connection closed: user_id=%d, session_id=%d", actor.ID, session.ID)
}

// readLoop обрабатывает входящие подписки до разрыва соединения
func (g *Gateway) readLoop(r *http.Request, session *registry.Session, conn *wsConn) {
	readTimeout := g.cfg.HeartbeatInterval * 2
	_ = conn.conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Warn("readLoop: unexpected close: user_id=%d, error=%v", session.Identity.UserID, err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			g.sendError(conn, 0, "некорректное сообщение")
			continue
		}

		switch msg.Action {
		case actionSubscribe:
			g.subscribe(r, session, conn, msg.AppointmentID)
		case actionUnsubscribe:
			g.registry.Leave(session, registry.AppointmentRoom(msg.AppointmentID))
			g.sendAck(conn, "unsubscribed", msg.AppointmentID)
		default:
			g.sendError(conn, msg.AppointmentID, "неизвестное действие")
		}
	}
}

// subscribe подписывает сессию на комнату записи после проверки доступа
func (g *Gateway) subscribe(r *http.Request, session *registry.Session, conn *wsConn, appointmentID int64) {
	actor := session.Identity
	_, err := g.access.GetByID(r.Context(), appointmentID, domain.Actor{ID: actor.UserID, Role: actor.Role})
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrAppointmentNotFound):
			g.sendError(conn, appointmentID, "запись не найдена")
		case errors.Is(err, appointments.ErrAccessDenied):
			g.logger.Warn("subscribe: access denied: user_id=%d, appointment_id=%d", actor.UserID, appointmentID)
			g.sendError(conn, appointmentID, "доступ запрещен")
		default:
			g.logger.Error("subscribe: access check failed: user_id=%d, appointment_id=%d, error=%v",
				actor.UserID, appointmentID, err)
			g.sendError(conn, appointmentID, "внутренняя ошибка")
		}
		return
	}

	g.registry.Join(session, registry.AppointmentRoom(appointmentID))
	g.sendAck(conn, "subscribed", appointmentID)
}

func (g *Gateway) heartbeat(conn *wsConn) {
	ticker := time.NewTicker(g.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.Ping(); err != nil {
			return
		}
	}
}

func (g *Gateway) sendAck(conn *wsConn, kind string, appointmentID int64) {
	data, _ := json.Marshal(serverMessage{Kind: kind, AppointmentID: appointmentID})
	_ = conn.Send(data)
}

func (g *Gateway) sendError(conn *wsConn, appointmentID int64, message string) {
	data, _ := json.Marshal(serverMessage{Kind: "error", AppointmentID: appointmentID, Error: message})
	_ = conn.Send(data)
}

// wsConn адаптирует websocket.Conn к registry.Conn.
// Запись сериализуется мьютексом: в соединение пишут и диспетчер,
// и горутина heartbeat
type wsConn struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
