package escalation

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"mentorchat/models"
	"mentorchat/notify"
	"mentorchat/store"
)

const (
	DefaultInterval    = time.Minute
	DefaultThreshold   = 15 * time.Minute
	DefaultCallTimeout = 10 * time.Second
)

// Scheduler periodically scans for messages that stayed unread past the
// threshold and emails the recipient once per (message, recipient) pair.
// The pair's lifecycle is PENDING_READ -> READ (marker advanced in time) or
// PENDING_READ -> ESCALATED (claim recorded, email sent).
type Scheduler struct {
	Participants store.ParticipantStore
	Messages     store.MessageStore
	Rooms        store.RoomStore
	Users        store.UserStore
	Escalations  store.EscalationStore
	Gateway      notify.Gateway

	Interval    time.Duration
	Threshold   time.Duration
	CallTimeout time.Duration
	Now         func() time.Time // test clock

	running atomic.Bool
}

// Run ticks until ctx is cancelled. Scans are single-flight: a tick that
// fires while the previous scan is still working is skipped, so two scans
// never race inside one process.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Scan(ctx); err != nil {
				log.Printf("❌ Escalation scan failed: %v", err)
			}
		}
	}
}

// Scan walks every active membership, finds the oldest unread message per
// participant, and escalates the ones older than the threshold. Inactive
// participants never appear: deactivation immediately takes a user out of
// escalation scope.
func (s *Scheduler) Scan(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	defer s.running.Store(false)

	participants, err := s.Participants.ListAllActive(ctx)
	if err != nil {
		return err
	}

	threshold := s.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	for _, p := range participants {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg, err := s.Messages.OldestUnread(ctx, p.RoomID, p.UserID, p.LastReadSeq)
		if errors.Is(err, store.ErrNotFound) {
			continue // READ: nothing pending for this participant
		}
		if err != nil {
			log.Printf("❌ Escalation lookup failed for room %s: %v", p.RoomID.Hex(), err)
			continue
		}
		age := now.Sub(time.Unix(msg.CreatedAt, 0))
		if age < threshold {
			continue
		}
		s.escalate(ctx, p, msg)
	}
	return nil
}

// escalate claims the (message, recipient) pair before calling the gateway.
// The unique-index claim is what makes concurrent schedulers safe; a failed
// send releases the claim so the next scan retries.
func (s *Scheduler) escalate(ctx context.Context, p models.Participant, msg *models.Message) {
	claimed, err := s.Escalations.Claim(ctx, msg.ID, p.UserID, p.RoomID)
	if err != nil {
		log.Printf("❌ Escalation claim failed for message %s: %v", msg.ID.Hex(), err)
		return
	}
	if !claimed {
		return // ESCALATED already
	}

	email, err := s.buildEmail(ctx, p, msg)
	if err != nil {
		log.Printf("⚠️ Escalation for message %s released: %v", msg.ID.Hex(), err)
		s.release(ctx, p, msg)
		return
	}
	if email == nil {
		// recipient has no email address; keep the claim so the pair is not
		// rescanned forever
		return
	}

	timeout := s.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.Gateway.Send(callCtx, *email); err != nil {
		log.Printf("⚠️ Escalation email to %s failed: %v", email.To, err)
		s.release(ctx, p, msg)
		return
	}
	log.Printf("📧 Escalation email sent to %s for message %s", email.To, msg.ID.Hex())
}

func (s *Scheduler) buildEmail(ctx context.Context, p models.Participant, msg *models.Message) (*notify.Email, error) {
	recipient, err := s.Users.Get(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if recipient.Email == "" {
		return nil, nil
	}

	senderName := "Someone"
	if sender, err := s.Users.Get(ctx, msg.SenderID); err == nil && sender.Name != "" {
		senderName = sender.Name
	}

	roomName := ""
	if room, err := s.Rooms.Get(ctx, p.RoomID); err == nil {
		roomName = room.Name
	}

	preview := msg.Content
	if preview == "" && len(msg.Attachments) > 0 {
		preview = "[attachment]"
	}
	if len(preview) > 100 {
		preview = preview[:100]
	}

	return &notify.Email{
		To:         recipient.Email,
		ToName:     recipient.Name,
		SenderName: senderName,
		RoomName:   roomName,
		Preview:    preview,
		RoomID:     p.RoomID.Hex(),
	}, nil
}

func (s *Scheduler) release(ctx context.Context, p models.Participant, msg *models.Message) {
	if err := s.Escalations.Release(ctx, msg.ID, p.UserID); err != nil {
		log.Printf("❌ Escalation release failed for message %s: %v", msg.ID.Hex(), err)
	}
}
