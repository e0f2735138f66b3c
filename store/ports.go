package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorchat/models"
)

// ErrNotFound is returned when the requested document does not exist or is
// not visible to the caller.
var ErrNotFound = errors.New("store: not found")

type RoomStore interface {
	Create(ctx context.Context, room *models.Room) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Room, error)
	// FindDirect returns the active DIRECT room whose two participants are
	// exactly a and b, or ErrNotFound.
	FindDirect(ctx context.Context, a, b primitive.ObjectID) (*models.Room, error)
	Archive(ctx context.Context, id primitive.ObjectID) error
}

type ParticipantStore interface {
	Get(ctx context.Context, roomID, userID primitive.ObjectID) (*models.Participant, error)
	ListActive(ctx context.Context, roomID primitive.ObjectID) ([]models.Participant, error)
	// ListMemberships returns the caller's active memberships across rooms.
	ListMemberships(ctx context.Context, userID primitive.ObjectID) ([]models.Participant, error)
	// ListAllActive returns every active membership; used by the escalation scan.
	ListAllActive(ctx context.Context) ([]models.Participant, error)
	// Upsert adds the user to the room, reactivating an existing row.
	Upsert(ctx context.Context, roomID, userID primitive.ObjectID, role models.ParticipantRole) error
	Deactivate(ctx context.Context, roomID, userID primitive.ObjectID) error
	// AdvanceMarker moves the read marker forward to seq. It is a no-op when
	// the stored marker is already at or past seq; the bool reports whether
	// the marker moved.
	AdvanceMarker(ctx context.Context, roomID, userID primitive.ObjectID, seq int64) (bool, error)
}

type MessageStore interface {
	// Append persists the message, allocates its room sequence, advances the
	// sender's read marker and bumps the room's updatedAt — atomically. The
	// returned message carries the assigned id, seq and timestamps.
	Append(ctx context.Context, msg *models.Message) (*models.Message, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	// ListAfter returns live messages with seq > afterSeq in ascending order.
	ListAfter(ctx context.Context, roomID primitive.ObjectID, afterSeq, limit int64) ([]models.Message, error)
	// Last returns the most recent live message in the room, or ErrNotFound.
	Last(ctx context.Context, roomID primitive.ObjectID) (*models.Message, error)
	// CountUnread counts live messages after afterSeq authored by someone
	// other than userID.
	CountUnread(ctx context.Context, roomID, userID primitive.ObjectID, afterSeq int64) (int64, error)
	// OldestUnread returns the oldest such message, or ErrNotFound.
	OldestUnread(ctx context.Context, roomID, userID primitive.ObjectID, afterSeq int64) (*models.Message, error)
	// Edit replaces the content of a live message owned by senderID.
	Edit(ctx context.Context, id, senderID primitive.ObjectID, content string) (*models.Message, error)
	// SoftDelete tombstones a live message owned by senderID, nulling its content.
	SoftDelete(ctx context.Context, id, senderID primitive.ObjectID) (*models.Message, error)
}

type EscalationStore interface {
	// Claim records (messageID, userID) and reports whether this call won the
	// claim. A false return means another scan already holds it.
	Claim(ctx context.Context, messageID, userID, roomID primitive.ObjectID) (bool, error)
	// Release drops a claim after a failed notification so the next scan retries.
	Release(ctx context.Context, messageID, userID primitive.ObjectID) error
}

type UserStore interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type PushStore interface {
	Save(ctx context.Context, sub *models.PushSubscription) error
	Find(ctx context.Context, userID primitive.ObjectID) (*models.PushSubscription, error)
	Delete(ctx context.Context, userID primitive.ObjectID) error
}
