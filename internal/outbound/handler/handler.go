package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"event_messaging_backend/internal/messaging"
	"event_messaging_backend/internal/outbound/service"
	"event_messaging_backend/internal/outbound/transport"
	"event_messaging_backend/platform/httpkit"
	"event_messaging_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles outbound scheduling HTTP requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates an outbound handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// TriggerSpeakerAlerts fires speaker alerts now.
func (h *Handler) TriggerSpeakerAlerts(c *gin.Context) {
	h.trigger(c, messaging.TriggerSpeakerAlert)
}

// TriggerSponsorRecommendations fires sponsor recommendations now.
func (h *Handler) TriggerSponsorRecommendations(c *gin.Context) {
	h.trigger(c, messaging.TriggerSponsorRecommendation)
}

// TriggerPcrRequests fires session rating requests now.
func (h *Handler) TriggerPcrRequests(c *gin.Context) {
	h.trigger(c, messaging.TriggerPcrRequest)
}

// TriggerWrapup fires the event wrap-up now.
func (h *Handler) TriggerWrapup(c *gin.Context) {
	h.trigger(c, messaging.TriggerEventWrapup)
}

func (h *Handler) trigger(c *gin.Context, trigger messaging.TriggerType) {
	var req transport.TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.TriggerFamily(c.Request.Context(), req.EventID, req.ContractorID, trigger)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Accepted(c, transport.TriggerResponse{
		Scheduled: result.Scheduled,
		Skipped:   result.Skipped,
	})
}

// DelayEvent shifts every pending message of the event forward.
func (h *Handler) DelayEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.DelayEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	shifted, err := h.svc.DelayEvent(c.Request.Context(), eventID, time.Duration(req.DelayMinutes)*time.Minute)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.DelayEventResponse{Shifted: shifted})
}

// EndEvent closes out the event's message pipeline.
func (h *Handler) EndEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.EndEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	cancelled, err := h.svc.EndEvent(c.Request.Context(), eventID, req.Early)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.EndEventResponse{Cancelled: cancelled})
}
