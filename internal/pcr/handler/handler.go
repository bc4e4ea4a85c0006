package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"event_messaging_backend/internal/pcr/service"
	"event_messaging_backend/platform/httpkit"
)

// Handler serves PCR aggregate reads for ops tooling.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) GetSummary(c *gin.Context) {
	subjectID, err := uuid.Parse(c.Param("subjectId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid subject id", nil)
		return
	}

	summary, err := h.svc.GetSummary(c.Request.Context(), c.Param("subjectType"), subjectID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, summary)
}
