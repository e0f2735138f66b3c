package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"mentorchat/database"
	"mentorchat/models"
)

type MongoRoomStore struct {
	rooms        *mongo.Collection
	participants *mongo.Collection
}

func NewMongoRoomStore(db *database.DB) *MongoRoomStore {
	return &MongoRoomStore{rooms: db.Rooms, participants: db.Participants}
}

var _ RoomStore = (*MongoRoomStore)(nil)

func (s *MongoRoomStore) Create(ctx context.Context, room *models.Room) error {
	now := time.Now().Unix()
	room.ID = primitive.NewObjectID()
	room.Status = models.RoomActive
	room.CreatedAt = now
	room.UpdatedAt = now
	_, err := s.rooms.InsertOne(ctx, room)
	return err
}

func (s *MongoRoomStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Room, error) {
	var room models.Room
	err := s.rooms.FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// FindDirect looks for an active DIRECT room whose active membership is
// exactly {a, b}: group memberships of the pair by room and keep rooms
// holding both.
func (s *MongoRoomStore) FindDirect(ctx context.Context, a, b primitive.ObjectID) (*models.Room, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "userId", Value: bson.D{{Key: "$in", Value: bson.A{a, b}}}},
			{Key: "isActive", Value: true},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$roomId"},
			{Key: "members", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "members", Value: 2}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "rooms"},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "room"},
		}}},
		{{Key: "$unwind", Value: "$room"}},
		{{Key: "$match", Value: bson.D{
			{Key: "room.type", Value: models.RoomDirect},
			{Key: "room.status", Value: models.RoomActive},
		}}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$room"}}}},
		{{Key: "$limit", Value: 1}},
	}

	cursor, err := s.participants.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		return nil, ErrNotFound
	}
	var room models.Room
	if err := cursor.Decode(&room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *MongoRoomStore) Archive(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.rooms.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": models.RoomArchived, "updatedAt": time.Now().Unix()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
