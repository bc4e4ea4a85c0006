package transport

import "github.com/google/uuid"

// InboundWebhookRequest is the CRM webhook body for one inbound SMS.
type InboundWebhookRequest struct {
	Phone          string    `json:"phone" validate:"required"`
	MessageContent string    `json:"message_content" validate:"required"`
	CRMContactID   string    `json:"ghl_contact_id"`
	CRMLocationID  string    `json:"ghl_location_id"` // sent by the CRM, not used for routing
	EventID        uuid.UUID `json:"event_id" validate:"required"`
}

// InboundWebhookResponse carries the reply back over the webhook; the
// CRM relays it to the sender's SMS conversation.
type InboundWebhookResponse struct {
	Handler string `json:"handler"`
	Reply   string `json:"reply"`
}
