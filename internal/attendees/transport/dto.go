package transport

import (
	"time"

	"github.com/google/uuid"
)

type CheckinRequest struct {
	ContractorID uuid.UUID `json:"contractorId" validate:"required"`
}

type CheckinResponse struct {
	ContractorID      uuid.UUID `json:"contractorId"`
	EventID           uuid.UUID `json:"eventId"`
	CheckedInAt       time.Time `json:"checkedInAt"`
	MessagesScheduled int       `json:"messagesScheduled"`
}

type OptOutRequest struct {
	ContractorID uuid.UUID `json:"contractorId" validate:"required"`
}
