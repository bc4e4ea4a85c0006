package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	agendasvc "event_messaging_backend/internal/agenda/service"
	attendeesrepo "event_messaging_backend/internal/attendees/repository"
	"event_messaging_backend/internal/events"
	"event_messaging_backend/internal/messaging"
	"event_messaging_backend/internal/outbound/repository"
	"event_messaging_backend/internal/scheduler"
	"event_messaging_backend/platform/lanes"
	"event_messaging_backend/platform/logger"
)

// TaskScheduler enqueues worker tasks for pending rows. Implemented by
// scheduler.Client; nil-safe so tests can run without Redis.
type TaskScheduler interface {
	ScheduleOutboundMessage(ctx context.Context, payload scheduler.OutboundMessageDuePayload, runAt time.Time) error
	ScheduleEventWrapup(ctx context.Context, payload scheduler.EventWrapupDuePayload, runAt time.Time) error
}

type Service struct {
	repo      *repository.Repository
	attendees *attendeesrepo.Repository
	agenda    *agendasvc.Service
	tasks     TaskScheduler
	lanes     *lanes.Service
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

func New(
	repo *repository.Repository,
	attendees *attendeesrepo.Repository,
	agenda *agendasvc.Service,
	tasks TaskScheduler,
	laneSvc *lanes.Service,
	bus events.Bus,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		attendees: attendees,
		agenda:    agenda,
		tasks:     tasks,
		lanes:     laneSvc,
		bus:       bus,
		log:       log,
		now:       time.Now,
	}
}

// ScheduleForAttendee computes and durably enqueues the full proactive
// catalogue for one checked-in attendee. Safe to call repeatedly; the
// deterministic dedupe keys make re-scheduling a no-op. Returns how many
// rows were newly scheduled.
func (s *Service) ScheduleForAttendee(ctx context.Context, contractorID, eventID uuid.UUID) (int, error) {
	plan, err := s.buildPlan(ctx, contractorID, eventID)
	if err != nil {
		return 0, err
	}

	inserted, err := s.repo.InsertPending(ctx, plan)
	if err != nil {
		return 0, err
	}

	for _, row := range inserted {
		if err := s.enqueueRow(ctx, row.ID, row.ContractorID, row.EventID, row.ScheduledTime); err != nil {
			return len(inserted), err
		}
	}

	event, err := s.agenda.GetEvent(ctx, eventID)
	if err != nil {
		return len(inserted), err
	}
	if s.tasks == nil {
		return len(inserted), nil
	}
	if err := s.tasks.ScheduleEventWrapup(ctx,
		scheduler.EventWrapupDuePayload{EventID: eventID.String()},
		event.EndsAt,
	); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return len(inserted), err
	}

	s.log.Info("outbound plan scheduled",
		"contractor_id", contractorID,
		"event_id", eventID,
		"scheduled", len(inserted),
		"skipped", len(plan)-len(inserted),
	)
	return len(inserted), nil
}

func (s *Service) buildPlan(ctx context.Context, contractorID, eventID uuid.UUID) ([]messaging.ScheduledMessage, error) {
	attendee, err := s.attendees.GetByID(ctx, contractorID, eventID)
	if err != nil {
		return nil, err
	}

	event, err := s.agenda.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	recommended, err := s.agenda.RecommendedSessions(ctx, eventID, recommendedLimit)
	if err != nil {
		return nil, err
	}
	breaks, err := s.agenda.Breaks(ctx, eventID)
	if err != nil {
		return nil, err
	}
	lunch, err := s.agenda.LunchBlock(ctx, eventID)
	if err != nil {
		return nil, err
	}
	sponsors, err := s.agenda.Sponsors(ctx, eventID)
	if err != nil {
		return nil, err
	}

	return BuildPlan(PlanInput{
		ContractorID: contractorID,
		EventID:      eventID,
		FirstName:    attendee.FirstName,
		Event:        event,
		Recommended:  recommended,
		Breaks:       breaks,
		Lunch:        lunch,
		Sponsors:     sponsors,
		Now:          s.now(),
	}), nil
}

func (s *Service) enqueueRow(ctx context.Context, id, contractorID, eventID uuid.UUID, runAt time.Time) error {
	if s.tasks == nil {
		// Worker tasks disabled (no Redis); rows stay pending.
		return nil
	}
	err := s.tasks.ScheduleOutboundMessage(ctx, scheduler.OutboundMessageDuePayload{
		ScheduledMessageID: id.String(),
		ContractorID:       contractorID.String(),
		EventID:            eventID.String(),
	}, runAt)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// TriggerResult reports what an explicit family trigger did.
type TriggerResult struct {
	Scheduled int `json:"scheduled"`
	Skipped   int `json:"skipped"`
}

// TriggerFamily schedules one proactive family immediately for either a
// single contractor or every checked-in attendee. Rows the check-in plan
// already created are skipped by their dedupe keys.
func (s *Service) TriggerFamily(ctx context.Context, eventID uuid.UUID, contractorID *uuid.UUID, trigger messaging.TriggerType) (TriggerResult, error) {
	var targets []uuid.UUID
	if contractorID != nil {
		targets = []uuid.UUID{*contractorID}
	} else {
		attendees, err := s.attendees.ListCheckedIn(ctx, eventID)
		if err != nil {
			return TriggerResult{}, err
		}
		for _, a := range attendees {
			targets = append(targets, a.ContractorID)
		}
	}

	var result TriggerResult
	now := s.now()
	for _, target := range targets {
		plan, err := s.buildPlan(ctx, target, eventID)
		if err != nil {
			return result, err
		}

		var family []messaging.ScheduledMessage
		for _, row := range plan {
			if row.MessageType != string(trigger) {
				continue
			}
			row.ScheduledTime = now
			family = append(family, row)
		}

		inserted, err := s.repo.InsertPending(ctx, family)
		if err != nil {
			return result, err
		}
		for _, row := range inserted {
			if err := s.enqueueRow(ctx, row.ID, row.ContractorID, row.EventID, now); err != nil {
				return result, err
			}
		}
		result.Scheduled += len(inserted)
		result.Skipped += len(family) - len(inserted)
	}
	return result, nil
}

// DelayEvent shifts every pending row of the event by offset and enqueues
// fresh worker tasks for the new times. The superseded tasks find rows
// scheduled in the future and skip them.
func (s *Service) DelayEvent(ctx context.Context, eventID uuid.UUID, offset time.Duration) (int, error) {
	retimed, err := s.repo.ShiftPending(ctx, eventID, offset)
	if err != nil {
		return 0, err
	}

	for _, rt := range retimed {
		if err := s.enqueueRow(ctx, rt.ID, rt.ContractorID, rt.EventID, rt.ScheduledTime); err != nil {
			return len(retimed), err
		}
	}

	s.bus.Publish(ctx, events.EventDelayed{
		BaseEvent: events.NewBaseEvent(),
		EventID:   eventID,
		Offset:    offset,
	})
	s.log.Info("event delayed", "event_id", eventID, "offset", offset, "retimed", len(retimed))
	return len(retimed), nil
}

// EndEvent settles an event's remaining schedule. On an early end the
// sponsor batch check fires now and the wrap-up an hour from now; every
// other pending row is cancelled so nothing fires stale. Attendee lanes
// are cleared so queued mid-event work gets an explicit rejection.
func (s *Service) EndEvent(ctx context.Context, eventID uuid.UUID, early bool) (int, error) {
	now := s.now()

	if early {
		batch, err := s.repo.RetimeFamily(ctx, eventID, messaging.TriggerSponsorBatchCheck, now)
		if err != nil {
			return 0, err
		}
		wrapup, err := s.repo.RetimeFamily(ctx, eventID, messaging.TriggerEventWrapup, now.Add(wrapupDelay))
		if err != nil {
			return 0, err
		}
		for _, rt := range append(batch, wrapup...) {
			if err := s.enqueueRow(ctx, rt.ID, rt.ContractorID, rt.EventID, rt.ScheduledTime); err != nil {
				return 0, err
			}
		}
	}

	cancelled, err := s.repo.CancelPendingExcept(ctx, eventID, []messaging.TriggerType{
		messaging.TriggerSponsorBatchCheck,
		messaging.TriggerEventWrapup,
	})
	if err != nil {
		return 0, err
	}

	attendees, err := s.attendees.ListCheckedIn(ctx, eventID)
	if err != nil {
		return cancelled, err
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, a := range attendees {
		contractorID := a.ContractorID
		g.Go(func() error {
			if dropped := s.lanes.Clear(contractorID.String()); dropped > 0 {
				s.log.Info("cleared attendee lane on event end",
					"contractor_id", contractorID,
					"dropped", dropped,
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return cancelled, err
	}

	s.bus.Publish(ctx, events.EventEnded{
		BaseEvent: events.NewBaseEvent(),
		EventID:   eventID,
		Early:     early,
	})
	s.log.Info("event ended", "event_id", eventID, "early", early, "cancelled", cancelled)
	return cancelled, nil
}

// PendingCount reports how many scheduled rows of an event are still pending.
func (s *Service) PendingCount(ctx context.Context, eventID uuid.UUID) (int, error) {
	return s.repo.PendingCount(ctx, eventID)
}

// CancelForContractor cancels a contractor's pending rows, for opt-out.
func (s *Service) CancelForContractor(ctx context.Context, contractorID, eventID uuid.UUID) (int, error) {
	return s.repo.CancelPendingForContractor(ctx, contractorID, eventID)
}
