package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Escalation marks "notification sent" for one (message, recipient) pair.
// A unique index on (messageId, userId) makes the claim atomic across
// concurrent scheduler runs.
type Escalation struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MessageID primitive.ObjectID `bson:"messageId" json:"messageId"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	RoomID    primitive.ObjectID `bson:"roomId" json:"roomId"`
	CreatedAt int64              `bson:"createdAt" json:"createdAt"`
}
