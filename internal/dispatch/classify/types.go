// Package classify decides what one inbound attendee message is and routes each
// to its handler. Message types form a closed set; the dispatcher
// switches over them exhaustively so adding a handler is a compile-time
// change.
package classify

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"event_messaging_backend/internal/messaging"
)

// MessageType classifies one inbound message.
type MessageType string

const (
	TypeEventCheckin             MessageType = "event_checkin"
	TypeSpeakerDetails           MessageType = "speaker_details"
	TypeSpeakerFeedback          MessageType = "speaker_feedback"
	TypeSponsorDetails           MessageType = "sponsor_details"
	TypeSponsorTalkingPoints     MessageType = "sponsor_talking_points"
	TypePeerMatchingIntroduction MessageType = "peer_matching_introduction"
	TypePeerMatchAcceptance      MessageType = "peer_match_acceptance"
	TypePcrResponse              MessageType = "pcr_response"
	TypeAttendanceConfirmation   MessageType = "attendance_confirmation"
	TypeAdminCommand             MessageType = "admin_command"
	TypeGeneralQuestion          MessageType = "general_question"
	TypeClarificationNeeded      MessageType = "clarification_needed"
	TypeErrorHandler             MessageType = "error_handler"
)

// MessageTypes is the closed classification set, exported for tests.
var MessageTypes = []MessageType{
	TypeEventCheckin,
	TypeSpeakerDetails,
	TypeSpeakerFeedback,
	TypeSponsorDetails,
	TypeSponsorTalkingPoints,
	TypePeerMatchingIntroduction,
	TypePeerMatchAcceptance,
	TypePcrResponse,
	TypeAttendanceConfirmation,
	TypeAdminCommand,
	TypeGeneralQuestion,
	TypeClarificationNeeded,
	TypeErrorHandler,
}

// ErrAmbiguousReply marks a short reply that matched more than one
// outstanding interaction. It routes to clarification, not to a failure
// path.
var ErrAmbiguousReply = errors.New("reply matches more than one pending interaction")

// Outstanding is one sent message still awaiting the contractor's reply.
type Outstanding struct {
	MessageID uuid.UUID
	Trigger   messaging.TriggerType
	SentAt    time.Time
	// AgendaItemID binds session-scoped interactions (PCR requests,
	// speaker alerts) to their agenda item.
	AgendaItemID *uuid.UUID
	// Personalization carries the payload that was sent, including the
	// recommendation list ordinal replies index into.
	Personalization json.RawMessage
}

// resolvedType maps the outstanding trigger a short reply answered to the
// inbound message type its handler expects.
func resolvedType(trigger messaging.TriggerType) MessageType {
	switch trigger {
	case messaging.TriggerPcrRequest, messaging.TriggerEventWrapup:
		return TypePcrResponse
	case messaging.TriggerSpeakerAlert:
		return TypeSpeakerDetails
	case messaging.TriggerSponsorRecommendation, messaging.TriggerSponsorBatchCheck:
		return TypeSponsorDetails
	case messaging.TriggerPeerIntroduction:
		return TypePeerMatchAcceptance
	default:
		return TypeGeneralQuestion
	}
}
