package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DB bundles the mongo client with the collection handles the service uses.
// It is constructed once in main and passed to the stores explicitly.
type DB struct {
	Client       *mongo.Client
	Users        *mongo.Collection
	Rooms        *mongo.Collection
	Participants *mongo.Collection
	Messages     *mongo.Collection
	Escalations  *mongo.Collection
	PushSubs     *mongo.Collection
}

const dbName = "mentorchat"

func Connect(ctx context.Context, uri string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	return &DB{
		Client:       client,
		Users:        db.Collection("users"),
		Rooms:        db.Collection("rooms"),
		Participants: db.Collection("participants"),
		Messages:     db.Collection("messages"),
		Escalations:  db.Collection("escalations"),
		PushSubs:     db.Collection("push_subscriptions"),
	}, nil
}

// EnsureIndexes creates the indexes the delivery and escalation guarantees
// depend on. The unique (messageId, userId) index on escalations is the
// at-most-once claim; the unique (roomId, userId) index keeps one membership
// row per user per room.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	unique := options.Index().SetUnique(true)

	_, err := db.Users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}}, Options: unique,
	})
	if err != nil {
		return err
	}

	_, err = db.Participants.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "roomId", Value: 1}, {Key: "userId", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return err
	}

	_, err = db.Messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "seq", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = db.Escalations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "messageId", Value: 1}, {Key: "userId", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return err
	}

	_, err = db.PushSubs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}}, Options: unique,
	})
	if err != nil {
		return err
	}

	log.Println("✅ MongoDB indexes ensured")
	return nil
}

func (db *DB) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.Client.Disconnect(ctx)
}
