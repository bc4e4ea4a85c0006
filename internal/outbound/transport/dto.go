package transport

import "github.com/google/uuid"

// TriggerRequest fires one proactive message family for an event, either
// for every checked-in attendee or for one contractor.
type TriggerRequest struct {
	EventID      uuid.UUID  `json:"eventId" validate:"required"`
	ContractorID *uuid.UUID `json:"contractorId,omitempty"`
}

// TriggerResponse reports how many rows the trigger produced.
type TriggerResponse struct {
	Scheduled int `json:"scheduled"`
	Skipped   int `json:"skipped"`
}

// DelayEventRequest shifts every pending message of an event.
type DelayEventRequest struct {
	DelayMinutes int `json:"delayMinutes" validate:"required,gt=0,lte=480"`
}

// DelayEventResponse reports how many rows were re-timed.
type DelayEventResponse struct {
	Shifted int `json:"shifted"`
}

// EndEventRequest closes out an event's pipeline. Early pulls the
// sponsor check and wrap-up forward instead of waiting for the
// scheduled end.
type EndEventRequest struct {
	Early bool `json:"early"`
}

// EndEventResponse reports how many pending rows were cancelled.
type EndEventResponse struct {
	Cancelled int `json:"cancelled"`
}
