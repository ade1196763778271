package live

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Типы событий, которые рассылаются подключенным клиентам.
const (
	EventConnected      = "connected"
	EventHeartbeat      = "heartbeat"
	EventRaceUpdated    = "race-updated"
	EventContestUpdated = "contest-updated"
	EventSeriesUpdated  = "series-updated"
)

// Envelope — json-конверт события live-обновлений.
type Envelope struct {
	Type      string      `json:"type"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
}

// ForwardFunc пересылает событие другим процессам (см. Bridge). Может быть nil.
type ForwardFunc func(payload []byte)

const subscriberBuffer = 16

type subscriber struct {
	ch chan []byte
}

// Hub — in-process fan-out для live-обновлений. Конструируется явно и
// передается сервисам; глобального состояния нет. Безопасен для
// конкурентной регистрации, отписки и публикации.
type Hub struct {
	mu      sync.RWMutex
	subs    map[*subscriber]struct{}
	forward ForwardFunc
	logger  *slog.Logger

	// origin идентифицирует процесс, чтобы мост не зациклил событие.
	origin string
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[*subscriber]struct{}),
		logger: logger,
		origin: newOriginID(),
	}
}

func newOriginID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}

// Origin возвращает идентификатор процесса для маркировки пересылаемых событий.
func (h *Hub) Origin() string { return h.origin }

// SetForwarder подключает межпроцессную пересылку. Вызывается один раз при старте.
func (h *Hub) SetForwarder(f ForwardFunc) {
	h.mu.Lock()
	h.forward = f
	h.mu.Unlock()
}

// Subscribe регистрирует подписчика и возвращает канал его сообщений вместе
// с функцией отписки. Канал закрывается при отписке или при вытеснении
// медленного подписчика.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	sub := &subscriber{ch: make(chan []byte, subscriberBuffer)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	total := len(h.subs)
	h.mu.Unlock()

	h.logger.Debug("live subscriber registered", slog.Int("total", total))

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() { h.remove(sub) })
	}
	return sub.ch, unsubscribe
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
	total := len(h.subs)
	h.mu.Unlock()

	h.logger.Debug("live subscriber removed", slog.Int("total", total))
}

// Publish строит конверт события и рассылает его всем подписчикам.
// При наличии моста событие дополнительно уходит другим процессам.
func (h *Hub) Publish(eventType string, data interface{}) {
	payload, err := json.Marshal(Envelope{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		h.logger.Error("failed to marshal live event", slog.String("type", eventType), slog.Any("error", err))
		return
	}

	h.Deliver(payload)

	h.mu.RLock()
	forward := h.forward
	h.mu.RUnlock()
	if forward != nil {
		forward(payload)
	}
}

// Deliver рассылает готовый payload только локальным подписчикам. Мост
// вызывает Deliver (а не Publish) для событий из других процессов, чтобы
// не пересылать их повторно.
func (h *Hub) Deliver(payload []byte) {
	var stale []*subscriber

	h.mu.RLock()
	for sub := range h.subs {
		select {
		case sub.ch <- payload:
		default:
			// Переполненный канал означает отвалившегося или безнадежно
			// медленного клиента: вытесняем, не блокируя остальных.
			stale = append(stale, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range stale {
		h.logger.Warn("pruning stale live subscriber")
		h.remove(sub)
	}
}

// SubscriberCount возвращает число активных подписчиков.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
