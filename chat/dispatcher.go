package chat

import (
	"context"
	"errors"
	"log"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorchat/models"
	"mentorchat/realtime"
	"mentorchat/store"
)

// Publisher is the fast delivery path. A publish failure is a delivery
// warning, never a send failure: the message is already durable and the
// change feed plus the catch-up fetch recover it.
type Publisher interface {
	Publish(roomID string, ev realtime.Event) error
}

// Notifier fans out best-effort push notifications after a commit. It must
// not block the send path.
type Notifier interface {
	NotifyNewMessage(view models.MessageView, recipients []primitive.ObjectID)
}

// Invalidator drops cached room-list projections for the affected users.
type Invalidator interface {
	InvalidateRooms(ctx context.Context, userIDs []primitive.ObjectID)
}

// Dispatcher is the coordination point for message writes: validate,
// persist atomically, then publish. Persist-before-publish is load-bearing —
// subscribers must never see a message that could still roll back.
type Dispatcher struct {
	Rooms        store.RoomStore
	Participants store.ParticipantStore
	Messages     store.MessageStore
	Users        store.UserStore
	Channel      Publisher
	Notifier     Notifier    // optional
	Invalidator  Invalidator // optional
}

type SendInput struct {
	RoomID      primitive.ObjectID
	SenderID    primitive.ObjectID
	Content     string
	Type        models.MessageType
	Attachments []models.Attachment
}

func (d *Dispatcher) Send(ctx context.Context, in SendInput) (*models.MessageView, error) {
	participants, err := d.requireActiveParticipant(ctx, in.RoomID, in.SenderID)
	if err != nil {
		return nil, err
	}

	room, err := d.Rooms.Get(ctx, in.RoomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistence(err)
	}
	if room.Status != models.RoomActive {
		return nil, validationf("room is archived")
	}

	content := strings.TrimSpace(in.Content)
	msgType := in.Type
	if msgType == "" {
		msgType = models.MessageText
		if content == "" && len(in.Attachments) > 0 {
			msgType = attachmentType(in.Attachments)
		}
	}
	if err := validateSend(content, msgType, in.Attachments); err != nil {
		return nil, err
	}

	msg := &models.Message{
		RoomID:      in.RoomID,
		SenderID:    in.SenderID,
		Content:     content,
		Type:        msgType,
		Attachments: in.Attachments,
	}
	msg, err = d.Messages.Append(ctx, msg)
	if err != nil {
		return nil, persistence(err)
	}

	view := d.view(ctx, msg)
	d.publish(realtime.EventNewMessage, view)

	recipients := make([]primitive.ObjectID, 0, len(participants))
	for _, p := range participants {
		if p.UserID != in.SenderID {
			recipients = append(recipients, p.UserID)
		}
	}
	if d.Notifier != nil && len(recipients) > 0 {
		d.Notifier.NotifyNewMessage(view, recipients)
	}
	d.invalidate(ctx, participants)

	return &view, nil
}

// SendSystem records a membership or lifecycle announcement. System messages
// bypass the participant check (the actor may be an administrator outside
// the room) and never trigger notifications.
func (d *Dispatcher) SendSystem(ctx context.Context, roomID, actorID primitive.ObjectID, content string) (*models.MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationf("system message content is empty")
	}
	msg := &models.Message{
		RoomID:   roomID,
		SenderID: actorID,
		Content:  content,
		Type:     models.MessageSystem,
	}
	msg, err := d.Messages.Append(ctx, msg)
	if err != nil {
		return nil, persistence(err)
	}
	view := d.view(ctx, msg)
	d.publish(realtime.EventNewMessage, view)
	return &view, nil
}

// Edit replaces the content of the caller's own message.
func (d *Dispatcher) Edit(ctx context.Context, messageID, senderID primitive.ObjectID, content string) (*models.MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationf("content is empty")
	}
	if len(content) > models.MaxContentLength {
		return nil, validationf("content exceeds %d characters", models.MaxContentLength)
	}
	msg, err := d.Messages.Edit(ctx, messageID, senderID, content)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistence(err)
	}
	view := d.view(ctx, msg)
	d.publish(realtime.EventMessageUpdated, view)
	return &view, nil
}

// Delete tombstones the caller's own message: content nulled, attachments
// dropped, the row kept.
func (d *Dispatcher) Delete(ctx context.Context, messageID, senderID primitive.ObjectID) (*models.MessageView, error) {
	msg, err := d.Messages.SoftDelete(ctx, messageID, senderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistence(err)
	}
	view := d.view(ctx, msg)
	d.publish(realtime.EventMessageDeleted, view)
	return &view, nil
}

func (d *Dispatcher) requireActiveParticipant(ctx context.Context, roomID, userID primitive.ObjectID) ([]models.Participant, error) {
	participants, err := d.Participants.ListActive(ctx, roomID)
	if err != nil {
		return nil, persistence(err)
	}
	for _, p := range participants {
		if p.UserID == userID {
			return participants, nil
		}
	}
	return nil, ErrPermission
}

func validateSend(content string, msgType models.MessageType, attachments []models.Attachment) error {
	if content == "" && len(attachments) == 0 {
		return validationf("message needs content or an attachment")
	}
	if len(content) > models.MaxContentLength {
		return validationf("content exceeds %d characters", models.MaxContentLength)
	}
	if !models.ValidMessageType(msgType) {
		return validationf("unknown message type %q", msgType)
	}
	if msgType == models.MessageSystem {
		return validationf("system messages cannot be sent directly")
	}
	if (msgType == models.MessageImage || msgType == models.MessageFile) && len(attachments) == 0 {
		return validationf("%s message needs an attachment", msgType)
	}
	for _, att := range attachments {
		// the resolver must have run already; the dispatcher never uploads
		if att.URL == "" {
			return validationf("attachment %q has no resolved URL", att.Name)
		}
	}
	return nil
}

func attachmentType(attachments []models.Attachment) models.MessageType {
	for _, att := range attachments {
		if !strings.HasPrefix(att.MimeType, "image/") {
			return models.MessageFile
		}
	}
	return models.MessageImage
}

func (d *Dispatcher) view(ctx context.Context, msg *models.Message) models.MessageView {
	sender, err := d.Users.Get(ctx, msg.SenderID)
	if err != nil {
		sender = nil
	}
	return models.NewMessageView(msg, sender)
}

func (d *Dispatcher) publish(kind string, view models.MessageView) {
	ev := realtime.Event{
		Type:      kind,
		RoomID:    view.RoomID,
		MessageID: view.ID,
		Payload:   view,
	}
	if err := d.Channel.Publish(view.RoomID, ev); err != nil {
		// delivery warning: the message is durable, the change feed and the
		// catch-up fetch cover the gap
		log.Printf("⚠️ Realtime publish failed for message %s: %v", view.ID, err)
	}
}

func (d *Dispatcher) invalidate(ctx context.Context, participants []models.Participant) {
	if d.Invalidator == nil {
		return
	}
	ids := make([]primitive.ObjectID, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	d.Invalidator.InvalidateRooms(ctx, ids)
}
