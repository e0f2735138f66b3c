package realtime

// Event kinds delivered on a room topic.
const (
	EventNewMessage     = "new_message"
	EventMessageUpdated = "message_updated"
	EventMessageDeleted = "message_deleted"
	EventRead           = "read"
	EventTyping         = "typing"
)

// Event is one unit of room-topic traffic. Delivery is at-least-once: the
// same message can arrive via the explicit broadcast and again via the
// change feed, so consumers deduplicate on MessageID.
type Event struct {
	Type      string      `json:"type"`
	RoomID    string      `json:"roomId"`
	MessageID string      `json:"messageId,omitempty"`
	Payload   interface{} `json:"payload"`
}
