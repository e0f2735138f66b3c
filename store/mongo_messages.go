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

type MongoMessageStore struct {
	client       *mongo.Client
	rooms        *mongo.Collection
	messages     *mongo.Collection
	participants *mongo.Collection
}

func NewMongoMessageStore(db *database.DB) *MongoMessageStore {
	return &MongoMessageStore{
		client:       db.Client,
		rooms:        db.Rooms,
		messages:     db.Messages,
		participants: db.Participants,
	}
}

var _ MessageStore = (*MongoMessageStore)(nil)

// Append runs the whole write in one transaction: sequence allocation on the
// room document, the message insert, the sender's marker advance and the
// room's updatedAt bump commit together or not at all. Nothing is published
// until this returns.
func (s *MongoMessageStore) Append(ctx context.Context, msg *models.Message) (*models.Message, error) {
	session, err := s.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		now := time.Now().Unix()

		var room models.Room
		err := s.rooms.FindOneAndUpdate(sc,
			bson.M{"_id": msg.RoomID},
			bson.M{"$inc": bson.M{"lastSeq": 1}, "$set": bson.M{"updatedAt": now}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&room)
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}

		msg.ID = primitive.NewObjectID()
		msg.Seq = room.LastSeq
		msg.CreatedAt = now
		msg.UpdatedAt = now
		if _, err := s.messages.InsertOne(sc, msg); err != nil {
			return nil, err
		}

		// sender always sees their own message as read
		_, err = s.participants.UpdateOne(sc,
			bson.M{
				"roomId":      msg.RoomID,
				"userId":      msg.SenderID,
				"lastReadSeq": bson.M{"$lt": msg.Seq},
			},
			bson.M{"$set": bson.M{"lastReadSeq": msg.Seq, "lastReadAt": now}},
		)
		if err != nil {
			return nil, err
		}
		return msg, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Message), nil
}

func (s *MongoMessageStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var msg models.Message
	err := s.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *MongoMessageStore) ListAfter(ctx context.Context, roomID primitive.ObjectID, afterSeq, limit int64) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := s.messages.Find(ctx, bson.M{
		"roomId":    roomID,
		"seq":       bson.M{"$gt": afterSeq},
		"deletedAt": bson.M{"$exists": false},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Message
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoMessageStore) Last(ctx context.Context, roomID primitive.ObjectID) (*models.Message, error) {
	var msg models.Message
	err := s.messages.FindOne(ctx,
		bson.M{"roomId": roomID, "deletedAt": bson.M{"$exists": false}},
		options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}}),
	).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *MongoMessageStore) CountUnread(ctx context.Context, roomID, userID primitive.ObjectID, afterSeq int64) (int64, error) {
	return s.messages.CountDocuments(ctx, bson.M{
		"roomId":    roomID,
		"seq":       bson.M{"$gt": afterSeq},
		"senderId":  bson.M{"$ne": userID},
		"deletedAt": bson.M{"$exists": false},
	})
}

func (s *MongoMessageStore) OldestUnread(ctx context.Context, roomID, userID primitive.ObjectID, afterSeq int64) (*models.Message, error) {
	var msg models.Message
	err := s.messages.FindOne(ctx,
		bson.M{
			"roomId":    roomID,
			"seq":       bson.M{"$gt": afterSeq},
			"senderId":  bson.M{"$ne": userID},
			"deletedAt": bson.M{"$exists": false},
		},
		options.FindOne().SetSort(bson.D{{Key: "seq", Value: 1}}),
	).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *MongoMessageStore) Edit(ctx context.Context, id, senderID primitive.ObjectID, content string) (*models.Message, error) {
	var msg models.Message
	err := s.messages.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "senderId": senderID, "deletedAt": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{
			"content":   content,
			"isEdited":  true,
			"updatedAt": time.Now().Unix(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *MongoMessageStore) SoftDelete(ctx context.Context, id, senderID primitive.ObjectID) (*models.Message, error) {
	now := time.Now().Unix()
	var msg models.Message
	err := s.messages.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "senderId": senderID, "deletedAt": bson.M{"$exists": false}},
		bson.M{
			"$set":   bson.M{"deletedAt": now, "updatedAt": now, "content": ""},
			"$unset": bson.M{"attachments": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
