package chat

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorchat/models"
	"mentorchat/realtime"
	"mentorchat/store"
)

// ReadState owns the per-participant read markers. Markers only ever move
// forward; a retried or reordered markRead call is a no-op.
type ReadState struct {
	Participants store.ParticipantStore
	Messages     store.MessageStore
	Channel      Publisher
	Invalidator  Invalidator // optional
}

// MarkRead advances the caller's marker to the given message and returns the
// remaining unread count (0 when caught up). Calling it twice with the same
// message, or with an older one, changes nothing.
func (r *ReadState) MarkRead(ctx context.Context, roomID, userID, upToMessageID primitive.ObjectID) (int64, error) {
	p, err := r.activeParticipant(ctx, roomID, userID)
	if err != nil {
		return 0, err
	}

	msg, err := r.Messages.Get(ctx, upToMessageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, validationf("unknown message")
		}
		return 0, persistence(err)
	}
	if msg.RoomID != roomID {
		return 0, validationf("message does not belong to this room")
	}

	moved, err := r.Participants.AdvanceMarker(ctx, roomID, userID, msg.Seq)
	if err != nil {
		return 0, persistence(err)
	}

	marker := p.LastReadSeq
	if msg.Seq > marker {
		marker = msg.Seq
	}
	count, err := r.Messages.CountUnread(ctx, roomID, userID, marker)
	if err != nil {
		return 0, persistence(err)
	}

	if moved {
		r.Channel.Publish(roomID.Hex(), realtime.Event{
			Type:   realtime.EventRead,
			RoomID: roomID.Hex(),
			Payload: map[string]interface{}{
				"userId":      userID.Hex(),
				"upToSeq":     msg.Seq,
				"upToMessage": msg.ID.Hex(),
			},
		})
		if r.Invalidator != nil {
			r.Invalidator.InvalidateRooms(ctx, []primitive.ObjectID{userID})
		}
	}
	return count, nil
}

// UnreadCount counts live messages past the caller's marker authored by
// someone else.
func (r *ReadState) UnreadCount(ctx context.Context, roomID, userID primitive.ObjectID) (int64, error) {
	p, err := r.activeParticipant(ctx, roomID, userID)
	if err != nil {
		return 0, err
	}
	count, err := r.Messages.CountUnread(ctx, roomID, userID, p.LastReadSeq)
	if err != nil {
		return 0, persistence(err)
	}
	return count, nil
}

func (r *ReadState) activeParticipant(ctx context.Context, roomID, userID primitive.ObjectID) (*models.Participant, error) {
	p, err := r.Participants.Get(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPermission
		}
		return nil, persistence(err)
	}
	if !p.IsActive {
		return nil, ErrPermission
	}
	return p, nil
}
