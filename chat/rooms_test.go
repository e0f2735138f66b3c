package chat

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorchat/models"
)

func newRoomService(s *memStore, pub *fakePublisher) *RoomService {
	return &RoomService{
		Rooms:        s,
		Participants: participantView{s},
		Users:        userView{s},
		Dispatcher:   newDispatcher(s, pub),
	}
}

func TestCreateDirectIsIdempotent(t *testing.T) {
	s := newMemStore()
	svc := newRoomService(s, &fakePublisher{})

	alice := s.addUser("Alice")
	bob := s.addUser("Bob")

	room, created, err := svc.CreateDirect(context.Background(), alice, bob)
	if err != nil {
		t.Fatalf("CreateDirect: %v", err)
	}
	if !created {
		t.Fatal("first creation reported as existing")
	}

	// the same pair again, from either side, returns the same room
	again, created, err := svc.CreateDirect(context.Background(), bob, alice)
	if err != nil {
		t.Fatalf("repeat CreateDirect: %v", err)
	}
	if created {
		t.Error("repeat creation made a second room")
	}
	if again.ID != room.ID {
		t.Errorf("got room %s, want %s", again.ID.Hex(), room.ID.Hex())
	}
}

func TestCreateDirectRejectsSelf(t *testing.T) {
	s := newMemStore()
	svc := newRoomService(s, &fakePublisher{})
	alice := s.addUser("Alice")

	if _, _, err := svc.CreateDirect(context.Background(), alice, alice); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCreateDirectRejectsUnknownUser(t *testing.T) {
	s := newMemStore()
	svc := newRoomService(s, &fakePublisher{})
	alice := s.addUser("Alice")
	ghost := s.addUser("Ghost")
	s.mu.Lock()
	delete(s.users, ghost)
	s.mu.Unlock()

	if _, _, err := svc.CreateDirect(context.Background(), alice, ghost); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCreateGroupNeedsName(t *testing.T) {
	s := newMemStore()
	svc := newRoomService(s, &fakePublisher{})
	alice := s.addUser("Alice")

	if _, err := svc.CreateGroup(context.Background(), alice, "  ", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	room, err := svc.CreateGroup(context.Background(), alice, "Visa Q&A", nil)
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	p, err := (participantView{s}).Get(context.Background(), room.ID, alice)
	if err != nil {
		t.Fatalf("creator not joined: %v", err)
	}
	if p.Role != models.RoleOwner {
		t.Errorf("creator role = %s, want OWNER", p.Role)
	}
}

func TestArchiveIsOwnerOnly(t *testing.T) {
	s := newMemStore()
	svc := newRoomService(s, &fakePublisher{})

	alice := s.addUser("Alice")
	bob := s.addUser("Bob")
	room, err := svc.CreateGroup(context.Background(), alice, "Essays", []primitive.ObjectID{bob})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	if err := svc.Archive(context.Background(), room.ID, bob); !errors.Is(err, ErrPermission) {
		t.Fatalf("member archive: err = %v, want ErrPermission", err)
	}
	if err := svc.Archive(context.Background(), room.ID, alice); err != nil {
		t.Fatalf("owner archive: %v", err)
	}

	got, err := s.Get(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.RoomArchived {
		t.Errorf("status = %s, want ARCHIVED", got.Status)
	}
}

func TestGroupMembershipChanges(t *testing.T) {
	s := newMemStore()
	pub := &fakePublisher{}
	svc := newRoomService(s, pub)

	alice := s.addUser("Alice")
	bob := s.addUser("Bob")
	carol := s.addUser("Carol")

	room, err := svc.CreateGroup(context.Background(), alice, "Cohort 2026", []primitive.ObjectID{bob})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	// only the owner adds members
	if err := svc.AddParticipant(context.Background(), room.ID, bob, carol); !errors.Is(err, ErrPermission) {
		t.Fatalf("member add: err = %v, want ErrPermission", err)
	}
	if err := svc.AddParticipant(context.Background(), room.ID, alice, carol); err != nil {
		t.Fatalf("owner add: %v", err)
	}

	// a member may leave on their own
	if err := svc.RemoveParticipant(context.Background(), room.ID, carol, carol); err != nil {
		t.Fatalf("self-leave: %v", err)
	}
	p, err := (participantView{s}).Get(context.Background(), room.ID, carol)
	if err != nil {
		t.Fatalf("participant row gone after leave: %v", err)
	}
	if p.IsActive {
		t.Error("left participant still active")
	}

	// join and leave were both announced as system messages
	var systems int
	for _, ev := range pub.published() {
		if view, ok := ev.Payload.(models.MessageView); ok && view.Type == models.MessageSystem {
			systems++
		}
	}
	if systems != 2 {
		t.Errorf("system announcements = %d, want 2", systems)
	}
}

func TestDirectMembershipIsFixed(t *testing.T) {
	s := newMemStore()
	svc := newRoomService(s, &fakePublisher{})

	alice := s.addUser("Alice")
	bob := s.addUser("Bob")
	carol := s.addUser("Carol")

	room, _, err := svc.CreateDirect(context.Background(), alice, bob)
	if err != nil {
		t.Fatalf("CreateDirect: %v", err)
	}

	if err := svc.AddParticipant(context.Background(), room.ID, alice, carol); !errors.Is(err, ErrValidation) {
		t.Fatalf("add to direct room: err = %v, want ErrValidation", err)
	}
	if err := svc.RemoveParticipant(context.Background(), room.ID, alice, bob); !errors.Is(err, ErrValidation) {
		t.Fatalf("remove from direct room: err = %v, want ErrValidation", err)
	}
}
