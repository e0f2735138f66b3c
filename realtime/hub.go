package realtime

import "sync"

// Hub is the in-process room-topic registry. Publish fans an event out to
// the subscribers of that room only; cross-room traffic never leaks.
// Callbacks must not block — websocket clients hand events to a buffered
// send channel and drop on overflow.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[int64]func(Event)
	nextID int64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int64]func(Event))}
}

// Subscribe registers fn for the room topic and returns the unsubscribe
// function. Unsubscribing is idempotent and releases the topic entry once
// the last subscriber leaves.
func (h *Hub) Subscribe(roomID string, fn func(Event)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.subs[roomID] == nil {
		h.subs[roomID] = make(map[int64]func(Event))
	}
	h.subs[roomID][id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if room, ok := h.subs[roomID]; ok {
			delete(room, id)
			if len(room) == 0 {
				delete(h.subs, roomID)
			}
		}
	}
}

// Publish never fails for the in-process hub; the error return keeps the
// contract honest for transports that can.
func (h *Hub) Publish(roomID string, ev Event) error {
	h.mu.RLock()
	fns := make([]func(Event), 0, len(h.subs[roomID]))
	for _, fn := range h.subs[roomID] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
	return nil
}

// Subscribers reports the current subscriber count for a room topic.
func (h *Hub) Subscribers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[roomID])
}
