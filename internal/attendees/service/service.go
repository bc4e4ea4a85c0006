// Package service implements attendee lifecycle operations.
package service

import (
	"context"
	"time"

	"event_messaging_backend/internal/attendees/repository"
	"event_messaging_backend/internal/events"
	"event_messaging_backend/platform/logger"

	"github.com/google/uuid"
)

// CheckinScheduler is the port to the outbound scheduler. Implemented by
// the outbound module; injected in the composition root to avoid a
// circular module dependency.
type CheckinScheduler interface {
	ScheduleForAttendee(ctx context.Context, contractorID, eventID uuid.UUID) (int, error)
}

// LaneClearer cancels queued work for a contractor's lane on opt-out.
type LaneClearer interface {
	Clear(laneKey string) int
}

// Service implements attendee operations.
type Service struct {
	repo      *repository.Repository
	scheduler CheckinScheduler
	lanes     LaneClearer
	bus       events.Bus
	log       *logger.Logger
}

// New creates the attendee service. The scheduler port is wired later via
// SetScheduler (composition-root ordering).
func New(repo *repository.Repository, lanes LaneClearer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, lanes: lanes, bus: bus, log: log}
}

// SetScheduler injects the outbound scheduler port.
func (s *Service) SetScheduler(scheduler CheckinScheduler) {
	s.scheduler = scheduler
}

// Repo exposes the repository to sibling modules (dispatch sender lookup).
func (s *Service) Repo() *repository.Repository {
	return s.repo
}

// GetByPhone resolves a webhook sender to an attendee record.
func (s *Service) GetByPhone(ctx context.Context, rawPhone string, eventID uuid.UUID) (repository.Attendee, error) {
	return s.repo.GetByPhone(ctx, rawPhone, eventID)
}

// IsAdminPhone reports whether the phone is on the admin allowlist.
func (s *Service) IsAdminPhone(ctx context.Context, rawPhone string) (bool, error) {
	return s.repo.IsAdminPhone(ctx, rawPhone)
}

// CheckIn marks attendance and builds the attendee's proactive message
// pipeline. Safe to call twice: the duplicate webhook re-runs scheduling,
// which is idempotent by deterministic message key.
func (s *Service) CheckIn(ctx context.Context, contractorID, eventID uuid.UUID) (repository.Attendee, int, error) {
	attendee, changed, err := s.repo.CheckIn(ctx, contractorID, eventID, time.Now().UTC())
	if err != nil {
		return repository.Attendee{}, 0, err
	}

	scheduled := 0
	if s.scheduler != nil {
		scheduled, err = s.scheduler.ScheduleForAttendee(ctx, contractorID, eventID)
		if err != nil {
			return repository.Attendee{}, 0, err
		}
	}

	if changed && s.bus != nil {
		s.bus.Publish(ctx, events.AttendeeCheckedIn{
			BaseEvent:    events.NewBaseEvent(),
			ContractorID: attendee.ContractorID,
			EventID:      attendee.EventID,
			Phone:        attendee.Phone,
			CheckedInAt:  *attendee.CheckedInAt,
		})
	}

	return attendee, scheduled, nil
}

// OptOut flags the attendee, clears their lane, and announces the opt-out
// so the outbound scheduler cancels pending messages.
func (s *Service) OptOut(ctx context.Context, contractorID, eventID uuid.UUID) error {
	if err := s.repo.OptOut(ctx, contractorID, eventID); err != nil {
		return err
	}

	if s.lanes != nil {
		cleared := s.lanes.Clear(contractorID.String())
		if cleared > 0 {
			s.log.Info("cleared lane on opt-out",
				"contractor_id", contractorID, "tasks", cleared)
		}
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.AttendeeOptedOut{
			BaseEvent:    events.NewBaseEvent(),
			ContractorID: contractorID,
			EventID:      eventID,
		})
	}
	return nil
}

// ListCheckedIn returns the event's active audience.
func (s *Service) ListCheckedIn(ctx context.Context, eventID uuid.UUID) ([]repository.Attendee, error) {
	return s.repo.ListCheckedIn(ctx, eventID)
}
