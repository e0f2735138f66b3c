package realtime

import (
	"encoding/json"
	"testing"

	"mentorchat/models"
)

func newTestClient(hub *Hub) *Client {
	return &Client{
		send:   make(chan []byte, 16),
		hub:    hub,
		dedup:  NewDedup(16),
		unsubs: make(map[string]func()),
	}
}

func delivered(t *testing.T, c *Client) []Event {
	t.Helper()
	var out []Event
	for {
		select {
		case raw := <-c.send:
			var ev Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				t.Fatalf("bad frame on send channel: %v", err)
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func messageEvent(kind, id string, updatedAt int64) Event {
	return Event{
		Type:      kind,
		RoomID:    "room-a",
		MessageID: id,
		Payload:   models.MessageView{ID: id, RoomID: "room-a", UpdatedAt: updatedAt},
	}
}

// The broadcast and the change feed each deliver every event; the second
// copy of the same delivery must collapse at the client.
func TestClientCollapsesDuplicateDeliveries(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub)
	defer hub.Subscribe("room-a", c.deliver)()

	ev := messageEvent(EventNewMessage, "m1", 100)
	hub.Publish("room-a", ev) // broadcast path
	hub.Publish("room-a", ev) // change-feed copy

	got := delivered(t, c)
	if len(got) != 1 {
		t.Fatalf("delivered %d events, want 1", len(got))
	}
	if got[0].Type != EventNewMessage || got[0].MessageID != "m1" {
		t.Errorf("delivered = %+v", got[0])
	}
}

// An edit or deletion of a message the client already saw is new traffic,
// not a duplicate of the original delivery.
func TestClientDeliversMessageLifecycle(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub)
	defer hub.Subscribe("room-a", c.deliver)()

	hub.Publish("room-a", messageEvent(EventNewMessage, "m1", 100))
	hub.Publish("room-a", messageEvent(EventMessageUpdated, "m1", 101))
	hub.Publish("room-a", messageEvent(EventMessageUpdated, "m1", 101)) // feed copy of the edit
	hub.Publish("room-a", messageEvent(EventMessageUpdated, "m1", 102)) // a second edit
	hub.Publish("room-a", messageEvent(EventMessageDeleted, "m1", 103))

	got := delivered(t, c)
	want := []string{EventNewMessage, EventMessageUpdated, EventMessageUpdated, EventMessageDeleted}
	if len(got) != len(want) {
		t.Fatalf("delivered %d events, want %d: %+v", len(got), len(want), got)
	}
	for i, kind := range want {
		if got[i].Type != kind {
			t.Errorf("event %d type = %s, want %s", i, got[i].Type, kind)
		}
	}
}

// Events without a message id (typing, read markers) are never deduplicated.
func TestClientPassesThroughUnkeyedEvents(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub)
	defer hub.Subscribe("room-a", c.deliver)()

	typing := Event{Type: EventTyping, RoomID: "room-a", Payload: map[string]interface{}{"userId": "u1"}}
	hub.Publish("room-a", typing)
	hub.Publish("room-a", typing)

	if got := delivered(t, c); len(got) != 2 {
		t.Fatalf("delivered %d typing events, want 2", len(got))
	}
}
