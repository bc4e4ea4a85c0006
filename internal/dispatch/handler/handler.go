package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"event_messaging_backend/internal/dispatch/service"
	"event_messaging_backend/internal/dispatch/transport"
	"event_messaging_backend/platform/httpkit"
	"event_messaging_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles the inbound message webhook.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a dispatch handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// InboundMessage receives one attendee SMS relayed by the CRM and
// responds with the reply to send back. Unknown senders get 404 and no
// side effects run for them.
func (h *Handler) InboundMessage(c *gin.Context) {
	var req transport.InboundWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	outcome, err := h.svc.HandleInbound(c.Request.Context(), service.InboundMessage{
		Phone:        req.Phone,
		Body:         req.MessageContent,
		CRMContactID: req.CRMContactID,
		EventID:      req.EventID,
		ArrivedAt:    time.Now().UTC(),
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.InboundWebhookResponse{
		Handler: string(outcome.Type),
		Reply:   outcome.Reply,
	})
}
