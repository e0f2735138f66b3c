package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type ParticipantRole string

const (
	RoleMember ParticipantRole = "MEMBER"
	RoleOwner  ParticipantRole = "OWNER"
)

// Participant is a user's membership record in a room. Removal flips
// IsActive instead of deleting the row so history stays auditable.
type Participant struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoomID      primitive.ObjectID `bson:"roomId" json:"roomId"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	Role        ParticipantRole    `bson:"role" json:"role"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	JoinedAt    int64              `bson:"joinedAt" json:"joinedAt"`
	LastReadSeq int64              `bson:"lastReadSeq" json:"lastReadSeq"` // never regresses
	LastReadAt  int64              `bson:"lastReadAt" json:"lastReadAt"`
}
