package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type RoomType string

const (
	RoomDirect RoomType = "DIRECT"
	RoomGroup  RoomType = "GROUP"
)

type RoomStatus string

const (
	RoomActive   RoomStatus = "ACTIVE"
	RoomArchived RoomStatus = "ARCHIVED"
)

type Room struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type      RoomType           `bson:"type" json:"type"`
	Name      string             `bson:"name" json:"name"`
	Status    RoomStatus         `bson:"status" json:"status"`
	LastSeq   int64              `bson:"lastSeq" json:"-"` // per-room message sequence counter
	CreatedAt int64              `bson:"createdAt" json:"createdAt"`
	UpdatedAt int64              `bson:"updatedAt" json:"updatedAt"`
}
