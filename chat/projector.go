package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorchat/cache"
	"mentorchat/models"
	"mentorchat/store"
)

// DefaultListTTL bounds room-list staleness. Previews and unread counts may
// lag by this much; message bodies are never served from the cache.
const DefaultListTTL = 5 * time.Second

// LastMessagePreview is the truncated tail of a room for the list view.
type LastMessagePreview struct {
	ID         string             `json:"id"`
	Content    string             `json:"content"`
	Type       models.MessageType `json:"type"`
	SenderID   string             `json:"senderId"`
	SenderName string             `json:"senderName"`
	CreatedAt  int64              `json:"createdAt"`
}

type RoomSummary struct {
	ID               string             `json:"id"`
	Type             models.RoomType    `json:"type"`
	Name             string             `json:"name"`
	Status           models.RoomStatus  `json:"status"`
	LastMessage      *LastMessagePreview `json:"lastMessage"`
	UnreadCount      int64              `json:"unreadCount"`
	OtherParticipant *models.SenderView `json:"otherParticipant,omitempty"`
	CreatedAt        int64              `json:"createdAt"`
	UpdatedAt        int64              `json:"updatedAt"`
}

// Projector derives the per-user room list on demand from the room,
// message and read-state stores. It is a read-optimized view, not a second
// source of truth.
type Projector struct {
	Rooms        store.RoomStore
	Participants store.ParticipantStore
	Messages     store.MessageStore
	Users        store.UserStore
	Cache        cache.Cache
	TTL          time.Duration
}

func (p *Projector) ListRooms(ctx context.Context, userID primitive.ObjectID) ([]RoomSummary, error) {
	key := "rooms:" + userID.Hex()
	if cached, err := p.Cache.Get(ctx, key); err == nil {
		var out []RoomSummary
		if err := json.Unmarshal([]byte(cached), &out); err == nil {
			return out, nil
		}
	}

	memberships, err := p.Participants.ListMemberships(ctx, userID)
	if err != nil {
		return nil, persistence(err)
	}

	type entry struct {
		summary RoomSummary
		sortKey int64
	}
	entries := make([]entry, 0, len(memberships))

	for _, m := range memberships {
		room, err := p.Rooms.Get(ctx, m.RoomID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, persistence(err)
		}
		if room.Status != models.RoomActive {
			continue
		}

		summary := RoomSummary{
			ID:        room.ID.Hex(),
			Type:      room.Type,
			Name:      room.Name,
			Status:    room.Status,
			CreatedAt: room.CreatedAt,
			UpdatedAt: room.UpdatedAt,
		}
		sortKey := room.CreatedAt // rooms with no messages sort by creation

		last, err := p.Messages.Last(ctx, room.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, persistence(err)
		}
		if err == nil {
			summary.LastMessage = p.preview(ctx, last)
			sortKey = last.CreatedAt
		}

		unread, err := p.Messages.CountUnread(ctx, room.ID, userID, m.LastReadSeq)
		if err != nil {
			return nil, persistence(err)
		}
		summary.UnreadCount = unread

		if room.Type == models.RoomDirect {
			summary.OtherParticipant = p.partner(ctx, room.ID, userID)
		}

		entries = append(entries, entry{summary: summary, sortKey: sortKey})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].sortKey > entries[j].sortKey
	})

	out := make([]RoomSummary, len(entries))
	for i, e := range entries {
		out[i] = e.summary
	}

	if raw, err := json.Marshal(out); err == nil {
		ttl := p.TTL
		if ttl <= 0 {
			ttl = DefaultListTTL
		}
		if err := p.Cache.Set(ctx, key, string(raw), ttl); err != nil {
			log.Printf("⚠️ Room list cache set failed: %v", err)
		}
	}
	return out, nil
}

// InvalidateRooms drops cached lists after a send or markRead so the next
// fetch reflects the new preview and unread counts.
func (p *Projector) InvalidateRooms(ctx context.Context, userIDs []primitive.ObjectID) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, "rooms:"+id.Hex())
	}
	if err := p.Cache.Del(ctx, keys...); err != nil {
		log.Printf("⚠️ Room list cache invalidation failed: %v", err)
	}
}

func (p *Projector) preview(ctx context.Context, msg *models.Message) *LastMessagePreview {
	content := msg.Content
	if content == "" && len(msg.Attachments) > 0 {
		content = "[attachment]"
	}
	if len(content) > 100 {
		content = content[:100]
	}
	pre := &LastMessagePreview{
		ID:        msg.ID.Hex(),
		Content:   content,
		Type:      msg.Type,
		SenderID:  msg.SenderID.Hex(),
		CreatedAt: msg.CreatedAt,
	}
	if sender, err := p.Users.Get(ctx, msg.SenderID); err == nil {
		pre.SenderName = sender.Name
	}
	return pre
}

func (p *Projector) partner(ctx context.Context, roomID, userID primitive.ObjectID) *models.SenderView {
	participants, err := p.Participants.ListActive(ctx, roomID)
	if err != nil {
		return nil
	}
	for _, part := range participants {
		if part.UserID == userID {
			continue
		}
		user, err := p.Users.Get(ctx, part.UserID)
		if err != nil {
			return &models.SenderView{ID: part.UserID.Hex(), Name: "Unknown"}
		}
		return &models.SenderView{
			ID:     user.ID.Hex(),
			Name:   user.Name,
			Avatar: user.Avatar,
			Role:   user.Role,
		}
	}
	return nil
}
