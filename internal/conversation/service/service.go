package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	agendarepo "event_messaging_backend/internal/agenda/repository"
	"event_messaging_backend/internal/conversation"
	"event_messaging_backend/internal/conversation/repository"
	"event_messaging_backend/platform/logger"
)

// ActiveEventResolver reports the event a contractor is checked in to
// whose time window contains now, or nil when there is none.
type ActiveEventResolver interface {
	ActiveEventFor(ctx context.Context, contractorID uuid.UUID, now time.Time) (*agendarepo.Event, error)
}

// Resolution is the outcome of advancing the machine for one signal. The
// transient routing state never appears here; it always resolves within
// the same call.
type Resolution struct {
	Mode          conversation.Mode
	ActiveEventID *uuid.UUID
	ActiveEvent   *agendarepo.Event
}

type Service struct {
	repo   *repository.Repository
	agenda ActiveEventResolver
	log    *logger.Logger
	now    func() time.Time
}

func New(repo *repository.Repository, agenda ActiveEventResolver, log *logger.Logger) *Service {
	return &Service{repo: repo, agenda: agenda, log: log, now: time.Now}
}

// Advance applies signal to the contractor's conversation state, runs the
// routing guard when the machine lands in routing, and persists the
// resolved state.
func (s *Service) Advance(ctx context.Context, contractorID uuid.UUID, signal conversation.Signal) (*Resolution, error) {
	state, err := s.repo.Get(ctx, contractorID)
	if err != nil {
		return nil, err
	}

	next := conversation.Next(state.Mode, signal)
	if next == state.Mode && signal != conversation.SignalUpdateEventContext {
		s.log.Debug("conversation signal self-loop",
			"contractor_id", contractorID,
			"mode", string(state.Mode),
			"signal", string(signal),
		)
	}

	res := &Resolution{Mode: next, ActiveEventID: state.ActiveEventID}

	// The guard is re-evaluated on every pass through routing, and on
	// update_event_context while the event agent is serving, because
	// event windows open and close independently of message traffic.
	refreshEvent := next == conversation.ModeRouting ||
		(signal == conversation.SignalUpdateEventContext && next == conversation.ModeEventAgent)

	if refreshEvent {
		event, err := s.agenda.ActiveEventFor(ctx, contractorID, s.now())
		if err != nil {
			return nil, err
		}
		if next == conversation.ModeRouting {
			res.Mode = conversation.ResolveRouting(event != nil)
		}
		if event != nil {
			res.ActiveEvent = event
			res.ActiveEventID = &event.ID
		} else {
			res.ActiveEventID = nil
		}
	}

	// Only the event agent keeps an event bound between turns.
	if res.Mode != conversation.ModeEventAgent {
		res.ActiveEventID = nil
		res.ActiveEvent = nil
	}

	if err := s.repo.Save(ctx, &repository.State{
		ContractorID:  contractorID,
		Mode:          res.Mode,
		ActiveEventID: res.ActiveEventID,
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Mode returns the persisted mode without advancing the machine.
func (s *Service) Mode(ctx context.Context, contractorID uuid.UUID) (conversation.Mode, error) {
	state, err := s.repo.Get(ctx, contractorID)
	if err != nil {
		return "", err
	}
	return state.Mode, nil
}
