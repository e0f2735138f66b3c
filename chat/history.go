package chat

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorchat/models"
	"mentorchat/store"
)

// DefaultHistoryLimit caps a single catch-up fetch.
const DefaultHistoryLimit = 50

// History returns the room's live messages after the given message, oldest
// first. A zero afterID starts from the beginning. Clients reconnecting from
// the realtime channel call this with the last message they saw to close any
// delivery gap.
func (d *Dispatcher) History(ctx context.Context, roomID, userID, afterID primitive.ObjectID, limit int64) ([]models.MessageView, error) {
	if _, err := d.requireActiveParticipant(ctx, roomID, userID); err != nil {
		return nil, err
	}

	var afterSeq int64
	if !afterID.IsZero() {
		after, err := d.Messages.Get(ctx, afterID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, validationf("unknown message in after cursor")
			}
			return nil, persistence(err)
		}
		if after.RoomID != roomID {
			return nil, validationf("after cursor does not belong to this room")
		}
		afterSeq = after.Seq
	}

	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	msgs, err := d.Messages.ListAfter(ctx, roomID, afterSeq, limit)
	if err != nil {
		return nil, persistence(err)
	}

	// sender lookups are cached per request; rooms are small
	senders := make(map[primitive.ObjectID]*models.User)
	views := make([]models.MessageView, 0, len(msgs))
	for i := range msgs {
		sender, ok := senders[msgs[i].SenderID]
		if !ok {
			sender, _ = d.Users.Get(ctx, msgs[i].SenderID)
			senders[msgs[i].SenderID] = sender
		}
		views = append(views, models.NewMessageView(&msgs[i], sender))
	}
	return views, nil
}
