package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mentorchat/database"
	"mentorchat/models"
)

type MongoUserStore struct {
	users *mongo.Collection
}

func NewMongoUserStore(db *database.DB) *MongoUserStore {
	return &MongoUserStore{users: db.Users}
}

var _ UserStore = (*MongoUserStore)(nil)

func (s *MongoUserStore) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStore) Create(ctx context.Context, user *models.User) error {
	_, err := s.users.InsertOne(ctx, user)
	return err
}

type MongoPushStore struct {
	subs *mongo.Collection
}

func NewMongoPushStore(db *database.DB) *MongoPushStore {
	return &MongoPushStore{subs: db.PushSubs}
}

var _ PushStore = (*MongoPushStore)(nil)

func (s *MongoPushStore) Save(ctx context.Context, sub *models.PushSubscription) error {
	_, err := s.subs.UpdateOne(ctx,
		bson.M{"userId": sub.UserID},
		bson.M{"$set": bson.M{"sub": sub.Sub}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoPushStore) Find(ctx context.Context, userID primitive.ObjectID) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	err := s.subs.FindOne(ctx, bson.M{"userId": userID}).Decode(&sub)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *MongoPushStore) Delete(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.subs.DeleteOne(ctx, bson.M{"userId": userID})
	return err
}
