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

type MongoEscalationStore struct {
	escalations *mongo.Collection
}

func NewMongoEscalationStore(db *database.DB) *MongoEscalationStore {
	return &MongoEscalationStore{escalations: db.Escalations}
}

var _ EscalationStore = (*MongoEscalationStore)(nil)

// Claim inserts the (messageId, userId) pair. The unique index turns the
// insert into an atomic test-and-set: a duplicate-key error means a
// concurrent scan already claimed the pair.
func (s *MongoEscalationStore) Claim(ctx context.Context, messageID, userID, roomID primitive.ObjectID) (bool, error) {
	_, err := s.escalations.InsertOne(ctx, models.Escalation{
		ID:        primitive.NewObjectID(),
		MessageID: messageID,
		UserID:    userID,
		RoomID:    roomID,
		CreatedAt: time.Now().Unix(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *MongoEscalationStore) Release(ctx context.Context, messageID, userID primitive.ObjectID) error {
	_, err := s.escalations.DeleteOne(ctx, bson.M{"messageId": messageID, "userId": userID})
	return err
}
