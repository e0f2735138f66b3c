package realtime

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mentorchat/models"
	"mentorchat/store"
)

// Feed is the durable half of the dual delivery path: it tails the message
// collection's change stream and republishes inserts and updates into the
// hub. A broadcast that was lost on the fast path still reaches subscribers
// here; duplicates are handled by the consumer's message-id dedup.
type Feed struct {
	messages *mongo.Collection
	hub      *Hub
	users    store.UserStore
}

func NewFeed(messages *mongo.Collection, hub *Hub, users store.UserStore) *Feed {
	return &Feed{messages: messages, hub: hub, users: users}
}

type changeEvent struct {
	OperationType string         `bson:"operationType"`
	FullDocument  models.Message `bson:"fullDocument"`
}

// Run tails the change stream until ctx is cancelled, reopening the stream
// with backoff when the transport drops. Events during a gap are not
// replayed — clients reconcile via the catch-up fetch.
func (f *Feed) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		if err := f.tail(ctx); err != nil && ctx.Err() == nil {
			log.Printf("❌ Change feed dropped: %v (reopening in %s)", err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second
	}
}

func (f *Feed) tail(ctx context.Context) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "update", "replace"}}}},
		}}},
	}
	cs, err := f.messages.Watch(ctx, pipeline,
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return err
	}
	defer cs.Close(ctx)

	for cs.Next(ctx) {
		var ev changeEvent
		if err := cs.Decode(&ev); err != nil {
			log.Printf("❌ Change feed decode error: %v", err)
			continue
		}
		f.publish(ctx, &ev)
	}
	return cs.Err()
}

func (f *Feed) publish(ctx context.Context, ev *changeEvent) {
	msg := &ev.FullDocument
	if msg.ID.IsZero() {
		return
	}

	kind := EventNewMessage
	switch {
	case ev.OperationType != "insert" && msg.Deleted():
		kind = EventMessageDeleted
	case ev.OperationType != "insert":
		kind = EventMessageUpdated
	}

	sender, err := f.users.Get(ctx, msg.SenderID)
	if err != nil {
		sender = nil // placeholder display fields
	}

	f.hub.Publish(msg.RoomID.Hex(), Event{
		Type:      kind,
		RoomID:    msg.RoomID.Hex(),
		MessageID: msg.ID.Hex(),
		Payload:   models.NewMessageView(msg, sender),
	})
}
