package live

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const heartbeatInterval = 30 * time.Second

// ServeSSE обслуживает одно долгоживущее server-sent-events соединение:
// сразу шлет connected, затем транслирует события хаба и heartbeat каждые
// 30 секунд, пока клиент не отключится.
func ServeSSE(hub *Hub, logger *slog.Logger, w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	connected, _ := json.Marshal(Envelope{
		Type:    EventConnected,
		Message: "SSE connection established",
	})
	if err := writeSSEFrame(w, connected); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug("SSE client disconnected")
			return

		case payload, ok := <-events:
			if !ok {
				// Хаб вытеснил подписчика.
				return
			}
			if err := writeSSEFrame(w, payload); err != nil {
				logger.Debug("SSE write failed, closing connection", slog.Any("error", err))
				return
			}
			flusher.Flush()

		case <-heartbeat.C:
			beat, _ := json.Marshal(Envelope{
				Type:      EventHeartbeat,
				Timestamp: time.Now().UnixMilli(),
			})
			if err := writeSSEFrame(w, beat); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEFrame(w http.ResponseWriter, payload []byte) error {
	_, err := fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
