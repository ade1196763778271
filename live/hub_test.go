package live

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case payload := <-ch:
		return payload
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestHubPublishDeliversEnvelope(t *testing.T) {
	hub := newTestHub()
	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	hub.Publish(EventRaceUpdated, map[string]int{"race_id": 7})

	var envelope Envelope
	if err := json.Unmarshal(receive(t, events), &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Type != EventRaceUpdated {
		t.Errorf("envelope type = %q, want %q", envelope.Type, EventRaceUpdated)
	}
	if envelope.Timestamp == 0 {
		t.Error("envelope timestamp is zero")
	}

	data, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	var payload struct {
		RaceID int `json:"race_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if payload.RaceID != 7 {
		t.Errorf("race_id = %d, want 7", payload.RaceID)
	}
}

func TestHubBroadcastsToAllSubscribers(t *testing.T) {
	hub := newTestHub()

	first, stopFirst := hub.Subscribe()
	defer stopFirst()
	second, stopSecond := hub.Subscribe()
	defer stopSecond()

	if hub.SubscriberCount() != 2 {
		t.Fatalf("subscriber count = %d, want 2", hub.SubscriberCount())
	}

	hub.Publish(EventContestUpdated, nil)
	receive(t, first)
	receive(t, second)
}

func TestHubUnsubscribeIsIdempotent(t *testing.T) {
	hub := newTestHub()

	_, unsubscribe := hub.Subscribe()
	unsubscribe()
	unsubscribe() // повторный вызов не должен паниковать

	if hub.SubscriberCount() != 0 {
		t.Fatalf("subscriber count = %d, want 0", hub.SubscriberCount())
	}
}

// Подписчик с переполненным буфером вытесняется, не блокируя рассылку
// остальным.
func TestHubPrunesStalledSubscriber(t *testing.T) {
	hub := newTestHub()

	stalled, stopStalled := hub.Subscribe()
	defer stopStalled()
	healthy, stopHealthy := hub.Subscribe()
	defer stopHealthy()

	// Переполняем буфер первого подписчика, не читая его.
	for i := 0; i <= subscriberBuffer; i++ {
		hub.Publish(EventSeriesUpdated, map[string]int{"n": i})
	}

	if hub.SubscriberCount() != 1 {
		t.Fatalf("subscriber count = %d, want 1 (stalled pruned)", hub.SubscriberCount())
	}

	// Канал вытесненного подписчика закрыт после опустошения буфера.
	drained := 0
	for range stalled {
		drained++
	}
	if drained != subscriberBuffer {
		t.Errorf("stalled subscriber drained %d events, want %d", drained, subscriberBuffer)
	}

	// Живой подписчик получил все события.
	for i := 0; i <= subscriberBuffer; i++ {
		receive(t, healthy)
	}
}

func TestHubForwarderReceivesPublishedPayload(t *testing.T) {
	hub := newTestHub()

	forwarded := make(chan []byte, 1)
	hub.SetForwarder(func(payload []byte) {
		forwarded <- payload
	})

	hub.Publish(EventRaceUpdated, nil)

	payload := receive(t, forwarded)
	var envelope Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		t.Fatalf("unmarshal forwarded payload: %v", err)
	}
	if envelope.Type != EventRaceUpdated {
		t.Errorf("forwarded type = %q, want %q", envelope.Type, EventRaceUpdated)
	}
}

// Deliver рассылает только локально: форвардер не вызывается, петли между
// процессами нет.
func TestHubDeliverDoesNotForward(t *testing.T) {
	hub := newTestHub()

	forwarded := make(chan []byte, 1)
	hub.SetForwarder(func(payload []byte) {
		forwarded <- payload
	})

	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	hub.Deliver([]byte(`{"type":"race-updated"}`))
	receive(t, events)

	select {
	case <-forwarded:
		t.Fatal("Deliver must not invoke the forwarder")
	case <-time.After(50 * time.Millisecond):
	}
}
