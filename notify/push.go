package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorchat/models"
	"mentorchat/store"
)

// Pusher sends instant web-push notifications to the other participants of
// a room when a message lands. It is best-effort and runs off the send path.
type Pusher struct {
	Subs            store.PushStore
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string

	// Send defaults to webpush.SendNotification; tests inject a fake.
	Send func(message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (p *Pusher) NotifyNewMessage(view models.MessageView, recipients []primitive.ObjectID) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Panic in push notification: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		body := view.Content
		if body == "" && len(view.Attachments) > 0 {
			body = "[attachment]"
		}
		if len(body) > 100 {
			body = body[:100] + "..."
		}

		payload, err := json.Marshal(map[string]interface{}{
			"title": view.Sender.Name + " sent a message",
			"body":  body,
			"icon":  view.Sender.Avatar,
			"data": map[string]interface{}{
				"roomId":    view.RoomID,
				"timestamp": time.Now().Unix(),
			},
		})
		if err != nil {
			log.Printf("Failed to marshal push payload: %v", err)
			return
		}

		for _, userID := range recipients {
			p.sendOne(ctx, userID, payload)
		}
	}()
}

func (p *Pusher) sendOne(ctx context.Context, userID primitive.ObjectID, payload []byte) {
	sub, err := p.Subs.Find(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		log.Printf("Failed to find push subscription for user %s: %v", userID.Hex(), err)
		return
	}

	send := p.Send
	if send == nil {
		send = webpush.SendNotification
	}
	resp, err := send(payload, &sub.Sub, &webpush.Options{
		Subscriber:      p.Subscriber,
		VAPIDPublicKey:  p.VAPIDPublicKey,
		VAPIDPrivateKey: p.VAPIDPrivateKey,
		TTL:             30,
	})
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		log.Printf("Failed to send push to user %s: %v", userID.Hex(), err)
		if resp != nil && resp.StatusCode == http.StatusGone {
			// subscription expired
			if delErr := p.Subs.Delete(ctx, userID); delErr != nil {
				log.Printf("Failed to delete expired subscription: %v", delErr)
			}
		}
		return
	}
}
