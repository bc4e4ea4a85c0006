package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"event_messaging_backend/internal/events"
	"event_messaging_backend/internal/messaging"
	"event_messaging_backend/internal/outbound/repository"
	"event_messaging_backend/platform/logger"
)

const (
	maxAttempts = 3
	baseBackoff = 2 * time.Second
	// retimeSlack covers clock skew between the enqueue time of a worker
	// task and the row's scheduled_time. A row further in the future than
	// this was re-timed after the task was enqueued.
	retimeSlack = time.Minute
)

// Store is the slice of the scheduled-message repository delivery needs.
// Implemented by the outbound repository.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (messaging.ScheduledMessage, error)
	GetContact(ctx context.Context, messageID uuid.UUID) (repository.Contact, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service pushes due scheduled messages through a transport and settles
// the row's status exactly once.
type Service struct {
	repo  Store
	sms   Sender
	email Sender
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time

	sleep func(ctx context.Context, d time.Duration) error
}

func NewService(repo Store, sms, email Sender, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:  repo,
		sms:   sms,
		email: email,
		bus:   bus,
		log:   log,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Deliver sends one due message. Rows no longer pending are skipped
// silently (cancelled, already sent); rows re-timed into the future are
// skipped and left for their new task.
func (s *Service) Deliver(ctx context.Context, messageID uuid.UUID) error {
	msg, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}

	if msg.Status != messaging.StatusPending {
		s.log.Debug("skipping settled message",
			"message_id", messageID,
			"status", string(msg.Status),
		)
		return nil
	}
	if msg.ScheduledTime.After(s.now().Add(retimeSlack)) {
		s.log.Debug("skipping re-timed message",
			"message_id", messageID,
			"scheduled_time", msg.ScheduledTime,
		)
		return nil
	}

	contact, err := s.repo.GetContact(ctx, messageID)
	if err != nil {
		return err
	}
	if contact.OptedOut {
		// The opt-out cancellation raced this task; settle the row
		// instead of sending.
		if _, err := s.repo.MarkCancelled(ctx, messageID); err != nil {
			return err
		}
		s.log.Info("dropped message for opted-out attendee", "message_id", messageID)
		return nil
	}

	receipt, sendErr := s.sendWithRetry(ctx, msg, contact)
	if sendErr != nil {
		if _, err := s.repo.MarkFailed(ctx, messageID, sendErr.Error()); err != nil {
			return err
		}
		s.log.DeliveryFailure(messageID.String(), channelFor(contact), maxAttempts, sendErr)
		s.bus.Publish(ctx, events.OutboundMessageFailed{
			BaseEvent:          events.NewBaseEvent(),
			ScheduledMessageID: messageID,
			ContractorID:       msg.ContractorID,
			EventID:            msg.EventID,
			MessageType:        msg.MessageType,
			Reason:             sendErr.Error(),
		})
		return nil
	}

	settled, err := s.repo.MarkSent(ctx, messageID, s.now())
	if err != nil {
		return err
	}
	if !settled {
		// Lost the race against a cancel; the send went out but the row
		// keeps its terminal status.
		s.log.Warn("message sent but row already settled", "message_id", messageID)
		return nil
	}

	s.bus.Publish(ctx, events.OutboundMessageSent{
		BaseEvent:          events.NewBaseEvent(),
		ScheduledMessageID: messageID,
		ContractorID:       msg.ContractorID,
		EventID:            msg.EventID,
		MessageType:        msg.MessageType,
		ProviderID:         receipt.ProviderID,
	})
	return nil
}

// sendWithRetry applies the bounded retry policy: up to maxAttempts for
// transient errors with doubling backoff, one attempt for permanent ones.
func (s *Service) sendWithRetry(ctx context.Context, msg messaging.ScheduledMessage, contact repository.Contact) (Receipt, error) {
	out := Message{
		Phone:   contact.Phone,
		Body:    msg.Body,
		Subject: "Event update",
		Channel: ChannelSMS,
	}

	sender := s.sms
	if sender == nil || contact.Phone == "" {
		if s.email == nil || contact.Email == nil {
			return Receipt{}, fmt.Errorf("no transport available for message %s", msg.ID)
		}
		sender = s.email
		out.Channel = ChannelEmail
		out.Email = *contact.Email
	}

	var lastErr error
	backoff := baseBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		receipt, err := sender.Send(ctx, out)
		if err == nil {
			return receipt, nil
		}
		lastErr = err

		if !IsTransient(err) || attempt == maxAttempts {
			break
		}
		if err := s.sleep(ctx, backoff); err != nil {
			return Receipt{}, err
		}
		backoff *= 2
	}
	return Receipt{}, lastErr
}

func channelFor(contact repository.Contact) string {
	if contact.Phone != "" {
		return string(ChannelSMS)
	}
	return string(ChannelEmail)
}
