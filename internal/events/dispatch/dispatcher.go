// Package dispatch доставляет события workflow подключенным клиентам:
// широковещательно в комнату записи и адресно по результатам маршрутизации.
package dispatch

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/events/registry"
	"github.com/m04kA/SMC-AppointmentService/internal/events/router"
)

const (
	queueCapacity = 64

	// Очередь записи без событий дольше этого срока освобождается,
	// при новом событии она создается заново
	defaultQueueIdleTTL = 5 * time.Minute

	// Окно подавления повторно доставленного события (по event.ID)
	eventDedupTTL = 5 * time.Minute
)

// envelope обертка сообщений, уходящих в сокет
type envelope struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload"`
}

// queue очередь событий одной записи.
// pending считает события, принятые в Emit и еще не обработанные,
// и защищается мьютексом диспетчера
type queue struct {
	ch      chan domain.Event
	pending int
}

// Dispatcher асинхронный диспетчер событий.
// События одной записи обрабатываются одной горутиной в порядке
// поступления, события разных записей идут параллельно.
type Dispatcher struct {
	registry ConnectionRegistry
	router   NotificationRouter
	metrics  MetricsRecorder
	logger   Logger

	idleTTL time.Duration
	seen    router.DedupStore

	mu     sync.Mutex
	queues map[int64]*queue
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// New создает диспетчер
func New(reg ConnectionRegistry, rtr NotificationRouter, metrics MetricsRecorder, logger Logger) *Dispatcher {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Dispatcher{
		registry: reg,
		router:   rtr,
		metrics:  metrics,
		logger:   logger,
		idleTTL:  defaultQueueIdleTTL,
		seen:     router.NewMemoryDedupStore(eventDedupTTL),
		queues:   make(map[int64]*queue),
		done:     make(chan struct{}),
	}
}

// Emit ставит событие в очередь своей записи.
// После Close новые события отбрасываются с предупреждением
func (d *Dispatcher) Emit(event domain.Event) {
	d.mu.Lock()

	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("Emit: dispatcher closed, event dropped: type=%s appointment=%d",
			event.Type, event.AppointmentID)
		return
	}

	q, ok := d.queues[event.AppointmentID]
	if !ok {
		q = &queue{ch: make(chan domain.Event, queueCapacity)}
		d.queues[event.AppointmentID] = q
		d.wg.Add(1)
		go d.drain(event.AppointmentID, q)
	}
	q.pending++
	d.mu.Unlock()

	// Отправка вне критической секции: переполненная очередь одной
	// записи не задерживает события остальных
	q.ch <- event
}

// Close останавливает прием и дожидается доставки всего накопленного
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.done)
	d.mu.Unlock()

	d.wg.Wait()
}

// drain обрабатывает очередь одной записи.
// Простаивающая очередь снимается с учета, горутина завершается
func (d *Dispatcher) drain(appointmentID int64, q *queue) {
	defer d.wg.Done()

	idle := time.NewTimer(d.idleTTL)
	defer idle.Stop()

	for {
		select {
		case event := <-q.ch:
			d.dispatch(event)
			d.markProcessed(q)

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(d.idleTTL)

		case <-d.done:
			d.flush(q)
			return

		case <-idle.C:
			d.mu.Lock()
			if q.pending == 0 {
				delete(d.queues, appointmentID)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			idle.Reset(d.idleTTL)
		}
	}
}

// flush дорабатывает накопленные события при остановке.
// После установки closed новых инкрементов pending не бывает, поэтому
// каждое учтенное событие гарантированно придет в канал
func (d *Dispatcher) flush(q *queue) {
	for {
		d.mu.Lock()
		pending := q.pending
		d.mu.Unlock()

		if pending == 0 {
			return
		}

		event := <-q.ch
		d.dispatch(event)
		d.markProcessed(q)
	}
}

func (d *Dispatcher) markProcessed(q *queue) {
	d.mu.Lock()
	q.pending--
	d.mu.Unlock()
}

func (d *Dispatcher) dispatch(event domain.Event) {
	// Повтор уже доставленного события (at-least-once у источника)
	// гасится целиком, до широковещания
	if event.ID != "" && !d.seen.MarkSeen("event:"+event.ID, time.Now()) {
		d.logger.Info("dispatch: duplicate event suppressed: id=%s appointment=%d",
			event.ID, event.AppointmentID)
		return
	}

	d.metrics.RecordEventDispatched(string(event.Type))

	// Широковещание в комнату записи: подписчики видят событие целиком
	if data, err := json.Marshal(envelope{Kind: "event", Payload: event}); err != nil {
		d.logger.Error("dispatch: marshal event failed: %v", err)
	} else {
		d.registry.Broadcast(registry.AppointmentRoom(event.AppointmentID), data)
	}

	// Адресные уведомления подключенным пользователям
	online := d.registry.Online()
	recipients := make([]router.Recipient, 0, len(online))
	for _, identity := range online {
		recipients = append(recipients, router.Recipient{ID: identity.UserID, Role: identity.Role})
	}

	for _, notification := range d.router.Route(event, recipients) {
		data, err := json.Marshal(envelope{Kind: "notification", Payload: notification})
		if err != nil {
			d.logger.Error("dispatch: marshal notification failed: %v", err)
			d.metrics.RecordNotification(string(event.Type), "dropped")
			continue
		}

		if delivered := d.registry.Unicast(notification.RecipientID, data); delivered == 0 {
			d.logger.Warn("dispatch: no live sessions for recipient=%d event=%s",
				notification.RecipientID, event.Type)
			d.metrics.RecordNotification(string(event.Type), "dropped")
			continue
		}

		d.metrics.RecordNotification(string(event.Type), "delivered")
	}
}
