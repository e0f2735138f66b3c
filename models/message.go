package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type MessageType string

const (
	MessageText   MessageType = "TEXT"
	MessageImage  MessageType = "IMAGE"
	MessageFile   MessageType = "FILE"
	MessageSystem MessageType = "SYSTEM"
)

// MaxContentLength caps message bodies at the API boundary.
const MaxContentLength = 2000

// Attachment is embedded in its owning message, so the two are written in
// one document and can never be orphaned.
type Attachment struct {
	ID           string `bson:"id" json:"id"`
	URL          string `bson:"url" json:"url"`
	Name         string `bson:"name" json:"name"`
	MimeType     string `bson:"mimeType" json:"mimeType"`
	Size         int64  `bson:"size" json:"size"`
	ThumbnailURL string `bson:"thumbnailUrl,omitempty" json:"thumbnailUrl,omitempty"`
}

type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoomID      primitive.ObjectID `bson:"roomId" json:"roomId"`
	SenderID    primitive.ObjectID `bson:"senderId" json:"senderId"`
	Seq         int64              `bson:"seq" json:"seq"` // monotonic within the room
	Content     string             `bson:"content" json:"content"`
	Type        MessageType        `bson:"type" json:"type"`
	Attachments []Attachment       `bson:"attachments,omitempty" json:"attachments,omitempty"`
	IsEdited    bool               `bson:"isEdited" json:"isEdited"`
	CreatedAt   int64              `bson:"createdAt" json:"createdAt"`
	UpdatedAt   int64              `bson:"updatedAt" json:"updatedAt"`
	DeletedAt   int64              `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"` // 0 = live
}

// Deleted reports whether the message has been tombstoned.
func (m *Message) Deleted() bool { return m.DeletedAt != 0 }

func ValidMessageType(t MessageType) bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageSystem:
		return true
	}
	return false
}
