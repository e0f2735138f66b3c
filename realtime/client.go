package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mentorchat/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxFrame   = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// AuthFunc resolves a websocket token to a user id.
type AuthFunc func(token string) (string, error)

// AccessFunc reports whether the user is an active participant of the room.
type AccessFunc func(ctx context.Context, roomID, userID string) bool

// Client is one websocket connection. Its room subscriptions live only as
// long as the connection; closing unsubscribes everything and no further
// events are delivered.
type Client struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
	hub    *Hub
	access AccessFunc
	dedup  *Dedup

	mu     sync.Mutex
	unsubs map[string]func()
	closed bool
}

// ServeWS upgrades the request and runs the client pumps. The token is
// validated before the upgrade; an invalid token never reaches the hub.
func ServeWS(hub *Hub, auth AuthFunc, access AccessFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "Token required", http.StatusUnauthorized)
			return
		}
		userID, err := auth(token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("❌ WebSocket upgrade failed: %v", err)
			return
		}

		client := &Client{
			conn:   conn,
			userID: userID,
			send:   make(chan []byte, 256),
			hub:    hub,
			access: access,
			dedup:  NewDedup(256),
			unsubs: make(map[string]func()),
		}

		client.enqueue(Event{Type: "connected", Payload: map[string]interface{}{
			"userId": userID,
			"time":   time.Now().Unix(),
		}})

		go client.writePump()
		go client.readPump()
	}
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type roomFrame struct {
	RoomID string `json:"roomId"`
}

func (c *Client) readPump() {
	defer func() {
		c.teardown()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrame)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ WebSocket read error: %v", err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}

		switch f.Type {
		case "subscribe":
			c.handleSubscribe(f.Payload)
		case "unsubscribe":
			c.handleUnsubscribe(f.Payload)
		case "typing":
			c.handleTyping(f.Payload)
		case "ping":
			c.enqueue(Event{Type: "pong", Payload: map[string]interface{}{"time": time.Now().Unix()}})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleSubscribe(raw json.RawMessage) {
	var p roomFrame
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if !c.access(ctx, p.RoomID, c.userID) {
		c.enqueue(Event{Type: "error", RoomID: p.RoomID, Payload: "access denied"})
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if _, ok := c.unsubs[p.RoomID]; ok {
		c.mu.Unlock()
		return // already subscribed
	}
	c.unsubs[p.RoomID] = c.hub.Subscribe(p.RoomID, c.deliver)
	c.mu.Unlock()

	c.enqueue(Event{Type: "subscribed", RoomID: p.RoomID})
}

func (c *Client) handleUnsubscribe(raw json.RawMessage) {
	var p roomFrame
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" {
		return
	}
	c.mu.Lock()
	if unsub, ok := c.unsubs[p.RoomID]; ok {
		delete(c.unsubs, p.RoomID)
		unsub()
	}
	c.mu.Unlock()
}

// handleTyping relays typing indicators to the room without persisting them.
func (c *Client) handleTyping(raw json.RawMessage) {
	var p roomFrame
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" {
		return
	}
	c.mu.Lock()
	_, subscribed := c.unsubs[p.RoomID]
	c.mu.Unlock()
	if !subscribed {
		return
	}
	c.hub.Publish(p.RoomID, Event{
		Type:   EventTyping,
		RoomID: p.RoomID,
		Payload: map[string]interface{}{
			"userId":    c.userID,
			"timestamp": time.Now().Unix(),
		},
	})
}

// deliver is the hub callback: dedup, then hand off to the buffered send
// channel. A full channel drops the event — the client reconciles through
// the catch-up fetch.
func (c *Client) deliver(ev Event) {
	if key := dedupKey(ev); key != "" && c.dedup.Seen(key) {
		return
	}
	c.enqueue(ev)
}

// dedupKey identifies one delivery of one lifecycle event. The broadcast and
// the change feed both carry every event, so the two copies must collapse —
// but an update or deletion of an already seen message is new traffic, and
// so is a second edit of the same message. Type and revision keep those
// apart; events without a message id are never deduplicated.
func dedupKey(ev Event) string {
	if ev.MessageID == "" {
		return ""
	}
	key := ev.Type + "|" + ev.MessageID
	if view, ok := ev.Payload.(models.MessageView); ok {
		key += "|" + strconv.FormatInt(view.UpdatedAt, 10)
	}
	return key
}

func (c *Client) enqueue(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("❌ Error marshaling event: %v", err)
		return
	}
	// A hub callback can still be in flight while the connection tears down;
	// the closed check keeps it from hitting a closed channel.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for roomID, unsub := range c.unsubs {
		delete(c.unsubs, roomID)
		unsub()
	}
	close(c.send)
}
