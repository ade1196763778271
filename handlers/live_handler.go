package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cyclocross/stevenscup-app/live"
	"github.com/gorilla/websocket"
)

type LiveHandler struct {
	hub      *live.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewLiveHandler(hub *live.Hub, logger *slog.Logger) *LiveHandler {
	return &LiveHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Публичный read-only поток, CORS-ограничений нет.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Events обрабатывает GET /api/events/stream: поток live-событий по SSE.
func (h *LiveHandler) Events(w http.ResponseWriter, r *http.Request) {
	live.ServeSSE(h.hub, h.logger, w, r)
}

// WebSocket обрабатывает GET /api/ws: тот же поток для клиентов без
// EventSource.
func (h *LiveHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := live.NewClient(h.hub, conn, h.logger)
	go client.WritePump()
	go client.ReadPump()
}
