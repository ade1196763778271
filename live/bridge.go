package live

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Межпроцессная трансляция live-событий через Postgres LISTEN/NOTIFY.
// Когда приложение работает в несколько воркеров, Publish в одном процессе
// должен дойти до подписчиков остальных. Событие из канала публикуется
// только локально (Deliver), чтобы не уйти в бесконечную пересылку.

const (
	notifyChannel    = "stevenscup_live_events"
	minReconnectWait = 1 * time.Second
	maxReconnectWait = 30 * time.Second
)

type bridgeMessage struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

// Bridge пересылает события хаба другим процессам и принимает чужие.
type Bridge struct {
	hub      *Hub
	db       *sql.DB
	listener *pq.Listener
	logger   *slog.Logger
}

// NewBridge подключает мост к хабу. dsn используется для выделенного
// LISTEN-соединения, отдельного от пула приложения; db — для отправки NOTIFY.
func NewBridge(hub *Hub, db *sql.DB, dsn string, logger *slog.Logger) *Bridge {
	listener := pq.NewListener(dsn, minReconnectWait, maxReconnectWait, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("live bridge listener event", slog.Int("event", int(ev)), slog.Any("error", err))
		}
	})

	b := &Bridge{
		hub:      hub,
		db:       db,
		listener: listener,
		logger:   logger,
	}
	hub.SetForwarder(b.forward)
	return b
}

// Run слушает канал NOTIFY до отмены контекста. Запускается горутиной из main.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.listener.Listen(notifyChannel); err != nil {
		return err
	}
	defer b.listener.Close()

	b.logger.Info("live bridge listening", slog.String("channel", notifyChannel))

	for {
		select {
		case <-ctx.Done():
			return nil

		case notification := <-b.listener.Notify:
			if notification == nil {
				// Переподключение pq.Listener; события за время разрыва потеряны,
				// клиенты доберут состояние при следующем refetch.
				continue
			}
			b.handle([]byte(notification.Extra))

		case <-time.After(90 * time.Second):
			go b.listener.Ping()
		}
	}
}

func (b *Bridge) handle(raw []byte) {
	var msg bridgeMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		b.logger.Warn("live bridge received malformed payload", slog.Any("error", err))
		return
	}
	if msg.Origin == b.hub.Origin() {
		// Собственное событие уже доставлено локально при Publish.
		return
	}
	b.hub.Deliver(msg.Payload)
}

func (b *Bridge) forward(payload []byte) {
	msg, err := json.Marshal(bridgeMessage{
		Origin:  b.hub.Origin(),
		Payload: payload,
	})
	if err != nil {
		b.logger.Error("failed to marshal bridge message", slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := b.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, string(msg)); err != nil {
		b.logger.Warn("failed to forward live event", slog.Any("error", err))
	}
}
