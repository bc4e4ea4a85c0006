// Package messaging holds the shared scheduled-message model. Outbound
// scheduling, inbound dispatch, and the worker all read and write the
// same scheduled_messages table, so the row shape and its enums live
// here rather than in any one context.
package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Direction distinguishes planned outbound sends from recorded inbound
// replies. Inbound rows are audit records and never enter the pending
// status machine.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// Status is the outbound delivery status. A row moves out of pending
// exactly once.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// TriggerType names the proactive message family a row belongs to.
type TriggerType string

const (
	TriggerWelcome               TriggerType = "welcome"
	TriggerSpeakerAlert          TriggerType = "speaker_alert"
	TriggerSponsorRecommendation TriggerType = "sponsor_recommendation"
	TriggerPeerIntroduction      TriggerType = "peer_introduction"
	TriggerPcrRequest            TriggerType = "pcr_request"
	TriggerSponsorBatchCheck     TriggerType = "sponsor_batch_check"
	TriggerEventWrapup           TriggerType = "event_wrapup"
)

// TriggerTypes lists every proactive family.
var TriggerTypes = []TriggerType{
	TriggerWelcome,
	TriggerSpeakerAlert,
	TriggerSponsorRecommendation,
	TriggerPeerIntroduction,
	TriggerPcrRequest,
	TriggerSponsorBatchCheck,
	TriggerEventWrapup,
}

// AwaitsReply reports whether a sent message of this family leaves an
// outstanding interaction the contractor is expected to answer.
func (t TriggerType) AwaitsReply() bool {
	switch t {
	case TriggerSpeakerAlert, TriggerSponsorRecommendation, TriggerPeerIntroduction,
		TriggerPcrRequest, TriggerSponsorBatchCheck, TriggerEventWrapup:
		return true
	default:
		return false
	}
}

// ScheduledMessage is one planned outbound message or one recorded
// inbound reply. Rows are never deleted; they are the audit trail.
type ScheduledMessage struct {
	ID                  uuid.UUID
	ContractorID        uuid.UUID
	EventID             uuid.UUID
	MessageType         string
	Direction           Direction
	Status              Status
	ScheduledTime       time.Time
	ActualSendTime      *time.Time
	AgendaItemID        *uuid.UUID
	DedupeKey           string
	Body                string
	PersonalizationData json.RawMessage
	LastError           *string
	RespondedAt         *time.Time
	CreatedAt           time.Time
}

// ListItem is one entry of a recommendation list sent to an attendee.
// Short ordinal replies ("tell me about the 2nd") index into the list
// that was actually sent, recorded in the row's personalization data.
type ListItem struct {
	ID     uuid.UUID `json:"id"`
	Label  string    `json:"label"`
	Detail string    `json:"detail,omitempty"`
}

// ListPayload is the personalization payload of list-style messages.
type ListPayload struct {
	Items []ListItem `json:"items"`
}

// DedupeKey builds the deterministic scheduling key for a trigger. An
// agenda-independent trigger passes uuid.Nil for itemID.
func DedupeKey(contractorID, eventID uuid.UUID, trigger TriggerType, itemID uuid.UUID) string {
	return contractorID.String() + ":" + eventID.String() + ":" + string(trigger) + ":" + itemID.String()
}
