package outbound

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"event_messaging_backend/internal/events"
	"event_messaging_backend/platform/logger"
)

type recordingCanceller struct {
	contractorID uuid.UUID
	eventID      uuid.UUID
	calls        int
}

func (c *recordingCanceller) CancelForContractor(ctx context.Context, contractorID, eventID uuid.UUID) (int, error) {
	c.contractorID = contractorID
	c.eventID = eventID
	c.calls++
	return 3, nil
}

func TestOptOutCancelsPendingMessages(t *testing.T) {
	bus := events.NewInMemoryBus(logger.New("development"))
	canceller := &recordingCanceller{}
	bus.Subscribe(events.AttendeeOptedOut{}.EventName(), NewOptOutHandler(canceller, nil))

	contractorID := uuid.New()
	eventID := uuid.New()
	err := bus.PublishSync(context.Background(), events.AttendeeOptedOut{
		BaseEvent:    events.NewBaseEvent(),
		ContractorID: contractorID,
		EventID:      eventID,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if canceller.calls != 1 {
		t.Fatalf("cancel calls = %d, want 1", canceller.calls)
	}
	if canceller.contractorID != contractorID || canceller.eventID != eventID {
		t.Fatalf("cancelled wrong target: %s/%s", canceller.contractorID, canceller.eventID)
	}
}

func TestOptOutHandlerIgnoresOtherEvents(t *testing.T) {
	canceller := &recordingCanceller{}
	h := NewOptOutHandler(canceller, nil)

	err := h.Handle(context.Background(), events.AttendeeCheckedIn{BaseEvent: events.NewBaseEvent()})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if canceller.calls != 0 {
		t.Fatalf("cancel calls = %d, want 0", canceller.calls)
	}
}
