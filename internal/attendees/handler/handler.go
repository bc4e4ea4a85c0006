package handler

import (
	"net/http"

	"event_messaging_backend/internal/attendees/service"
	"event_messaging_backend/internal/attendees/transport"
	"event_messaging_backend/platform/httpkit"
	"event_messaging_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles attendee HTTP requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates an attendee handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Checkin handles the check-in trigger (ops tooling or badge-scan webhook relay).
func (h *Handler) Checkin(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	attendee, scheduled, err := h.svc.CheckIn(c.Request.Context(), req.ContractorID, eventID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Accepted(c, transport.CheckinResponse{
		ContractorID:      attendee.ContractorID,
		EventID:           attendee.EventID,
		CheckedInAt:       *attendee.CheckedInAt,
		MessagesScheduled: scheduled,
	})
}

// OptOut handles messaging opt-out for an attendee.
func (h *Handler) OptOut(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.OptOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	err = h.svc.OptOut(c.Request.Context(), req.ContractorID, eventID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Accepted(c, nil)
}
