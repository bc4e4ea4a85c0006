// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"event_messaging_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Attendee Domain Events
// =============================================================================

// AttendeeCheckedIn is published when a contractor checks in to an event.
// The outbound scheduler reacts by building the proactive message pipeline.
type AttendeeCheckedIn struct {
	BaseEvent
	ContractorID uuid.UUID `json:"contractorId"`
	EventID      uuid.UUID `json:"eventId"`
	Phone        string    `json:"phone"`
	CheckedInAt  time.Time `json:"checkedInAt"`
}

func (e AttendeeCheckedIn) EventName() string { return "attendee.checked_in" }

// AttendeeOptedOut is published when a contractor opts out of messaging.
// Pending outbound messages are cancelled and the contractor's lane cleared.
type AttendeeOptedOut struct {
	BaseEvent
	ContractorID uuid.UUID `json:"contractorId"`
	EventID      uuid.UUID `json:"eventId"`
}

func (e AttendeeOptedOut) EventName() string { return "attendee.opted_out" }

// =============================================================================
// Messaging Domain Events
// =============================================================================

// MessageReceived is published after an inbound message has been dispatched
// and its side effects committed.
type MessageReceived struct {
	BaseEvent
	ContractorID uuid.UUID `json:"contractorId"`
	EventID      uuid.UUID `json:"eventId"`
	Handler      string    `json:"handler"`
	Reply        string    `json:"reply"`
}

func (e MessageReceived) EventName() string { return "messaging.message.received" }

// OutboundMessageSent is published when a scheduled message was delivered.
type OutboundMessageSent struct {
	BaseEvent
	ScheduledMessageID uuid.UUID `json:"scheduledMessageId"`
	ContractorID       uuid.UUID `json:"contractorId"`
	EventID            uuid.UUID `json:"eventId"`
	MessageType        string    `json:"messageType"`
	ProviderID         string    `json:"providerId"`
}

func (e OutboundMessageSent) EventName() string { return "messaging.outbound.sent" }

// OutboundMessageFailed is published when delivery failed after retries.
// Reconciliation tooling consumes this for the operator queue.
type OutboundMessageFailed struct {
	BaseEvent
	ScheduledMessageID uuid.UUID `json:"scheduledMessageId"`
	ContractorID       uuid.UUID `json:"contractorId"`
	EventID            uuid.UUID `json:"eventId"`
	MessageType        string    `json:"messageType"`
	Reason             string    `json:"reason"`
}

func (e OutboundMessageFailed) EventName() string { return "messaging.outbound.failed" }

// =============================================================================
// Event Lifecycle Events
// =============================================================================

// EventDelayed is published when an event's agenda is administratively
// shifted; pending outbound messages are re-timed by the offset.
type EventDelayed struct {
	BaseEvent
	EventID uuid.UUID     `json:"eventId"`
	Offset  time.Duration `json:"offset"`
}

func (e EventDelayed) EventName() string { return "event.delayed" }

// EventEnded is published when an event ends (on schedule or early).
// Remaining pending outbound messages are cancelled and attendee lanes cleared.
type EventEnded struct {
	BaseEvent
	EventID uuid.UUID `json:"eventId"`
	Early   bool      `json:"early"`
}

func (e EventEnded) EventName() string { return "event.ended" }

// =============================================================================
// PCR Domain Events
// =============================================================================

// PcrRecorded is published when a handler extracted a rating and wrote a
// ledger entry.
type PcrRecorded struct {
	BaseEvent
	LedgerEntryID uuid.UUID `json:"ledgerEntryId"`
	SubjectType   string    `json:"subjectType"`
	SubjectID     uuid.UUID `json:"subjectId"`
	ContractorID  uuid.UUID `json:"contractorId"`
	Score         float64   `json:"score"`
}

func (e PcrRecorded) EventName() string { return "pcr.recorded" }
