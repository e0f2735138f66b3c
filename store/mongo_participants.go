package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mentorchat/database"
	"mentorchat/models"
)

type MongoParticipantStore struct {
	participants *mongo.Collection
}

func NewMongoParticipantStore(db *database.DB) *MongoParticipantStore {
	return &MongoParticipantStore{participants: db.Participants}
}

var _ ParticipantStore = (*MongoParticipantStore)(nil)

func (s *MongoParticipantStore) Get(ctx context.Context, roomID, userID primitive.ObjectID) (*models.Participant, error) {
	var p models.Participant
	err := s.participants.FindOne(ctx, bson.M{"roomId": roomID, "userId": userID}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoParticipantStore) ListActive(ctx context.Context, roomID primitive.ObjectID) ([]models.Participant, error) {
	return s.list(ctx, bson.M{"roomId": roomID, "isActive": true})
}

func (s *MongoParticipantStore) ListMemberships(ctx context.Context, userID primitive.ObjectID) ([]models.Participant, error) {
	return s.list(ctx, bson.M{"userId": userID, "isActive": true})
}

func (s *MongoParticipantStore) ListAllActive(ctx context.Context) ([]models.Participant, error) {
	return s.list(ctx, bson.M{"isActive": true})
}

func (s *MongoParticipantStore) list(ctx context.Context, filter bson.M) ([]models.Participant, error) {
	cursor, err := s.participants.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Participant
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoParticipantStore) Upsert(ctx context.Context, roomID, userID primitive.ObjectID, role models.ParticipantRole) error {
	now := time.Now().Unix()
	_, err := s.participants.UpdateOne(ctx,
		bson.M{"roomId": roomID, "userId": userID},
		bson.M{
			"$set": bson.M{"isActive": true, "role": role},
			"$setOnInsert": bson.M{
				"joinedAt":    now,
				"lastReadSeq": int64(0),
				"lastReadAt":  int64(0),
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoParticipantStore) Deactivate(ctx context.Context, roomID, userID primitive.ObjectID) error {
	res, err := s.participants.UpdateOne(ctx,
		bson.M{"roomId": roomID, "userId": userID},
		bson.M{"$set": bson.M{"isActive": false}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AdvanceMarker is conditional on the stored marker being behind seq, which
// makes it both idempotent and regression-proof under retries and reordered
// client calls.
func (s *MongoParticipantStore) AdvanceMarker(ctx context.Context, roomID, userID primitive.ObjectID, seq int64) (bool, error) {
	res, err := s.participants.UpdateOne(ctx,
		bson.M{
			"roomId":      roomID,
			"userId":      userID,
			"isActive":    true,
			"lastReadSeq": bson.M{"$lt": seq},
		},
		bson.M{"$set": bson.M{"lastReadSeq": seq, "lastReadAt": time.Now().Unix()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}
