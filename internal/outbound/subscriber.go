package outbound

import (
	"context"

	"github.com/google/uuid"

	"event_messaging_backend/internal/events"
	"event_messaging_backend/platform/logger"
)

// PendingCanceller cancels a contractor's pending scheduled rows.
type PendingCanceller interface {
	CancelForContractor(ctx context.Context, contractorID, eventID uuid.UUID) (int, error)
}

// OptOutHandler cancels an opted-out attendee's pending messages. The
// attendee service clears the lane itself; rows already persisted are
// settled here so none of them go pending to sent after the opt-out.
type OptOutHandler struct {
	canceller PendingCanceller
	log       *logger.Logger
}

// NewOptOutHandler creates the opt-out event handler.
func NewOptOutHandler(canceller PendingCanceller, log *logger.Logger) *OptOutHandler {
	return &OptOutHandler{canceller: canceller, log: log}
}

// Handle reacts to attendee.opted_out events.
func (h *OptOutHandler) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.AttendeeOptedOut)
	if !ok {
		return nil
	}

	cancelled, err := h.canceller.CancelForContractor(ctx, e.ContractorID, e.EventID)
	if err != nil {
		return err
	}
	if cancelled > 0 && h.log != nil {
		h.log.Info("cancelled pending messages on opt-out",
			"contractor_id", e.ContractorID,
			"event_id", e.EventID,
			"cancelled", cancelled,
		)
	}
	return nil
}

// RegisterHandlers subscribes the module's event consumers on the bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.AttendeeOptedOut{}.EventName(), NewOptOutHandler(m.svc, m.log))
}
