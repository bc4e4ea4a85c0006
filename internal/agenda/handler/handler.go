package handler

import (
	"net/http"

	"event_messaging_backend/internal/agenda/service"
	"event_messaging_backend/internal/agenda/transport"
	"event_messaging_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidID = "invalid id"

// Handler serves agenda read endpoints for ops tooling.
type Handler struct {
	svc *service.Service
}

// New creates an agenda handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) GetEventSessions(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	views, err := h.svc.GetEventSessions(c.Request.Context(), eventID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToSessionResponses(views))
}

func (h *Handler) GetSessionByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	v, err := h.svc.GetSessionByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToSessionResponse(v))
}
