package chat

import (
	"context"
	"errors"
	"log"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorchat/models"
	"mentorchat/store"
)

// RoomService owns room lifecycle and membership. Rooms are archived, never
// hard-deleted, and participants are deactivated, never removed, so the
// conversation history stays intact.
type RoomService struct {
	Rooms        store.RoomStore
	Participants store.ParticipantStore
	Users        store.UserStore
	Dispatcher   *Dispatcher
}

// CreateDirect opens (or returns) the DIRECT room between the two users.
// The existing-room check makes repeated creation idempotent, the same way
// a mentor assignment can run more than once.
func (s *RoomService) CreateDirect(ctx context.Context, creatorID, otherID primitive.ObjectID) (*models.Room, bool, error) {
	if creatorID == otherID {
		return nil, false, validationf("cannot open a direct room with yourself")
	}
	if _, err := s.Users.Get(ctx, otherID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, validationf("unknown user")
		}
		return nil, false, persistence(err)
	}

	if room, err := s.Rooms.FindDirect(ctx, creatorID, otherID); err == nil {
		return room, false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, persistence(err)
	}

	room := &models.Room{Type: models.RoomDirect}
	if err := s.Rooms.Create(ctx, room); err != nil {
		return nil, false, persistence(err)
	}
	if err := s.Participants.Upsert(ctx, room.ID, creatorID, models.RoleOwner); err != nil {
		return nil, false, persistence(err)
	}
	if err := s.Participants.Upsert(ctx, room.ID, otherID, models.RoleMember); err != nil {
		return nil, false, persistence(err)
	}
	return room, true, nil
}

func (s *RoomService) CreateGroup(ctx context.Context, creatorID primitive.ObjectID, name string, memberIDs []primitive.ObjectID) (*models.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("group room needs a name")
	}

	room := &models.Room{Type: models.RoomGroup, Name: name}
	if err := s.Rooms.Create(ctx, room); err != nil {
		return nil, persistence(err)
	}
	if err := s.Participants.Upsert(ctx, room.ID, creatorID, models.RoleOwner); err != nil {
		return nil, persistence(err)
	}
	for _, id := range memberIDs {
		if id == creatorID {
			continue
		}
		if err := s.Participants.Upsert(ctx, room.ID, id, models.RoleMember); err != nil {
			return nil, persistence(err)
		}
	}
	return room, nil
}

// Archive flips the room to ARCHIVED. Only the owner may archive.
func (s *RoomService) Archive(ctx context.Context, roomID, actorID primitive.ObjectID) error {
	if err := s.requireOwner(ctx, roomID, actorID); err != nil {
		return err
	}
	if err := s.Rooms.Archive(ctx, roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return persistence(err)
	}
	return nil
}

// AddParticipant joins a user to a GROUP room and announces it. DIRECT
// rooms keep exactly two participants, so membership there never changes.
func (s *RoomService) AddParticipant(ctx context.Context, roomID, actorID, userID primitive.ObjectID) error {
	room, err := s.groupRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(ctx, roomID, actorID); err != nil {
		return err
	}
	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return validationf("unknown user")
		}
		return persistence(err)
	}
	if err := s.Participants.Upsert(ctx, roomID, userID, models.RoleMember); err != nil {
		return persistence(err)
	}
	s.announce(ctx, room.ID, actorID, user.Name+" joined the room")
	return nil
}

// RemoveParticipant deactivates a GROUP membership. The owner can remove
// anyone; a member can remove themselves (leave). The row stays for audit.
func (s *RoomService) RemoveParticipant(ctx context.Context, roomID, actorID, userID primitive.ObjectID) error {
	room, err := s.groupRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if actorID != userID {
		if err := s.requireOwner(ctx, roomID, actorID); err != nil {
			return err
		}
	}
	if err := s.Participants.Deactivate(ctx, roomID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return persistence(err)
	}
	name := "A participant"
	if user, err := s.Users.Get(ctx, userID); err == nil {
		name = user.Name
	}
	s.announce(ctx, room.ID, actorID, name+" left the room")
	return nil
}

func (s *RoomService) groupRoom(ctx context.Context, roomID primitive.ObjectID) (*models.Room, error) {
	room, err := s.Rooms.Get(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistence(err)
	}
	if room.Type != models.RoomGroup {
		return nil, validationf("membership of a direct room cannot change")
	}
	if room.Status != models.RoomActive {
		return nil, validationf("room is archived")
	}
	return room, nil
}

func (s *RoomService) requireOwner(ctx context.Context, roomID, userID primitive.ObjectID) error {
	p, err := s.Participants.Get(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPermission
		}
		return persistence(err)
	}
	if !p.IsActive || p.Role != models.RoleOwner {
		return ErrPermission
	}
	return nil
}

func (s *RoomService) announce(ctx context.Context, roomID, actorID primitive.ObjectID, content string) {
	if s.Dispatcher == nil {
		return
	}
	if _, err := s.Dispatcher.SendSystem(ctx, roomID, actorID, content); err != nil {
		log.Printf("⚠️ System message for room %s failed: %v", roomID.Hex(), err)
	}
}
