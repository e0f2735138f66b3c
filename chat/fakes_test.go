package chat

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorchat/cache"
	"mentorchat/models"
	"mentorchat/realtime"
	"mentorchat/store"
)

// memStore is an in-memory stand-in for the mongo stores. It reproduces the
// store contracts the services rely on: per-room sequence allocation, the
// sender marker advancing on append, and forward-only read markers.
type memStore struct {
	mu           sync.Mutex
	rooms        map[primitive.ObjectID]*models.Room
	participants map[[2]primitive.ObjectID]*models.Participant // (roomID, userID)
	messages     []*models.Message
	users        map[primitive.ObjectID]*models.User
}

func newMemStore() *memStore {
	return &memStore{
		rooms:        make(map[primitive.ObjectID]*models.Room),
		participants: make(map[[2]primitive.ObjectID]*models.Participant),
		users:        make(map[primitive.ObjectID]*models.User),
	}
}

func (m *memStore) addUser(name string) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := primitive.NewObjectID()
	m.users[id] = &models.User{ID: id, Name: name, Email: name + "@example.com", Role: models.RoleStudent}
	return id
}

func (m *memStore) addRoom(roomType models.RoomType) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := primitive.NewObjectID()
	m.rooms[id] = &models.Room{ID: id, Type: roomType, Status: models.RoomActive, CreatedAt: time.Now().Unix()}
	return id
}

func (m *memStore) addParticipant(roomID, userID primitive.ObjectID, role models.ParticipantRole) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants[[2]primitive.ObjectID{roomID, userID}] = &models.Participant{
		ID: primitive.NewObjectID(), RoomID: roomID, UserID: userID,
		Role: role, IsActive: true, JoinedAt: time.Now().Unix(),
	}
}

// RoomStore

func (m *memStore) Create(ctx context.Context, room *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room.ID = primitive.NewObjectID()
	if room.Status == "" {
		room.Status = models.RoomActive
	}
	room.CreatedAt = time.Now().Unix()
	room.UpdatedAt = room.CreatedAt
	m.rooms[room.ID] = room
	return nil
}

func (m *memStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *room
	return &cp, nil
}

func (m *memStore) FindDirect(ctx context.Context, a, b primitive.ObjectID) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, room := range m.rooms {
		if room.Type != models.RoomDirect || room.Status != models.RoomActive {
			continue
		}
		pa := m.participants[[2]primitive.ObjectID{id, a}]
		pb := m.participants[[2]primitive.ObjectID{id, b}]
		if pa != nil && pa.IsActive && pb != nil && pb.IsActive {
			cp := *room
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) Archive(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return store.ErrNotFound
	}
	room.Status = models.RoomArchived
	return nil
}

// ParticipantStore

func (m *memStore) GetParticipant(ctx context.Context, roomID, userID primitive.ObjectID) (*models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[[2]primitive.ObjectID{roomID, userID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListActive(ctx context.Context, roomID primitive.ObjectID) ([]models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Participant
	for key, p := range m.participants {
		if key[0] == roomID && p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) ListMemberships(ctx context.Context, userID primitive.ObjectID) ([]models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Participant
	for key, p := range m.participants {
		if key[1] == userID && p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) ListAllActive(ctx context.Context) ([]models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Participant
	for _, p := range m.participants {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) Upsert(ctx context.Context, roomID, userID primitive.ObjectID, role models.ParticipantRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]primitive.ObjectID{roomID, userID}
	if p, ok := m.participants[key]; ok {
		p.IsActive = true
		return nil
	}
	m.participants[key] = &models.Participant{
		ID: primitive.NewObjectID(), RoomID: roomID, UserID: userID,
		Role: role, IsActive: true, JoinedAt: time.Now().Unix(),
	}
	return nil
}

func (m *memStore) Deactivate(ctx context.Context, roomID, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[[2]primitive.ObjectID{roomID, userID}]
	if !ok || !p.IsActive {
		return store.ErrNotFound
	}
	p.IsActive = false
	return nil
}

func (m *memStore) AdvanceMarker(ctx context.Context, roomID, userID primitive.ObjectID, seq int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[[2]primitive.ObjectID{roomID, userID}]
	if !ok {
		return false, store.ErrNotFound
	}
	if p.LastReadSeq >= seq {
		return false, nil
	}
	p.LastReadSeq = seq
	p.LastReadAt = time.Now().Unix()
	return true, nil
}

// MessageStore

func (m *memStore) Append(ctx context.Context, msg *models.Message) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[msg.RoomID]
	if !ok {
		return nil, store.ErrNotFound
	}
	room.LastSeq++
	msg.ID = primitive.NewObjectID()
	msg.Seq = room.LastSeq
	msg.CreatedAt = time.Now().Unix()
	msg.UpdatedAt = msg.CreatedAt
	room.UpdatedAt = msg.CreatedAt
	m.messages = append(m.messages, msg)
	if p, ok := m.participants[[2]primitive.ObjectID{msg.RoomID, msg.SenderID}]; ok && p.LastReadSeq < msg.Seq {
		p.LastReadSeq = msg.Seq
	}
	cp := *msg
	return &cp, nil
}

func (m *memStore) GetMessage(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id && !msg.Deleted() {
			cp := *msg
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListAfter(ctx context.Context, roomID primitive.ObjectID, afterSeq, limit int64) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, msg := range m.messages {
		if msg.RoomID == roomID && msg.Seq > afterSeq && !msg.Deleted() {
			out = append(out, *msg)
			if int64(len(out)) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) Last(ctx context.Context, roomID primitive.ObjectID) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].RoomID == roomID && !m.messages[i].Deleted() {
			cp := *m.messages[i]
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) CountUnread(ctx context.Context, roomID, userID primitive.ObjectID, afterSeq int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, msg := range m.messages {
		if msg.RoomID == roomID && msg.Seq > afterSeq && msg.SenderID != userID && !msg.Deleted() {
			count++
		}
	}
	return count, nil
}

func (m *memStore) OldestUnread(ctx context.Context, roomID, userID primitive.ObjectID, afterSeq int64) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.RoomID == roomID && msg.Seq > afterSeq && msg.SenderID != userID && !msg.Deleted() {
			cp := *msg
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) Edit(ctx context.Context, id, senderID primitive.ObjectID, content string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id && msg.SenderID == senderID && !msg.Deleted() {
			msg.Content = content
			msg.IsEdited = true
			msg.UpdatedAt = time.Now().Unix()
			cp := *msg
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) SoftDelete(ctx context.Context, id, senderID primitive.ObjectID) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id && msg.SenderID == senderID && !msg.Deleted() {
			msg.Content = ""
			msg.Attachments = nil
			msg.DeletedAt = time.Now().Unix()
			msg.UpdatedAt = msg.DeletedAt
			cp := *msg
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

// UserStore

func (m *memStore) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = primitive.NewObjectID()
	m.users[user.ID] = user
	return nil
}

// Adapters: the store interfaces share method names (Get, Create), so the
// memStore exposes them through thin per-interface views.

type participantView struct{ *memStore }

func (v participantView) Get(ctx context.Context, roomID, userID primitive.ObjectID) (*models.Participant, error) {
	return v.GetParticipant(ctx, roomID, userID)
}

type messageView struct{ *memStore }

func (v messageView) Get(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	return v.GetMessage(ctx, id)
}

type userView struct{ *memStore }

func (v userView) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return v.GetUser(ctx, id)
}

func (v userView) Create(ctx context.Context, user *models.User) error {
	return v.CreateUser(ctx, user)
}

var (
	_ store.RoomStore        = (*memStore)(nil)
	_ store.ParticipantStore = participantView{}
	_ store.MessageStore     = messageView{}
	_ store.UserStore        = userView{}
)

// fakePublisher records published events and can simulate a broken channel.
type fakePublisher struct {
	mu     sync.Mutex
	events []realtime.Event
	err    error
}

func (f *fakePublisher) Publish(roomID string, ev realtime.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) published() []realtime.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]realtime.Event, len(f.events))
	copy(out, f.events)
	return out
}

// fakeCache is a map-backed cache without expiry.
type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeCache) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeCache) Close() error { return nil }

func newDispatcher(s *memStore, pub *fakePublisher) *Dispatcher {
	return &Dispatcher{
		Rooms:        s,
		Participants: participantView{s},
		Messages:     messageView{s},
		Users:        userView{s},
		Channel:      pub,
	}
}
