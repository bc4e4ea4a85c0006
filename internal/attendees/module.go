// Package attendees provides the attendee registry bounded context module.
package attendees

import (
	"event_messaging_backend/internal/attendees/handler"
	"event_messaging_backend/internal/attendees/repository"
	"event_messaging_backend/internal/attendees/service"
	"event_messaging_backend/internal/events"
	apphttp "event_messaging_backend/internal/http"
	"event_messaging_backend/platform/logger"
	"event_messaging_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the attendees bounded context module implementing http.Module.
type Module struct {
	svc     *service.Service
	handler *handler.Handler
}

// NewModule creates and initializes the attendees module.
func NewModule(pool *pgxpool.Pool, lanes service.LaneClearer, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, lanes, bus, log)
	return &Module{
		svc:     svc,
		handler: handler.New(svc, val),
	}
}

// Service exposes the attendee service for port wiring.
func (m *Module) Service() *service.Service {
	return m.svc
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "attendees"
}

// RegisterRoutes mounts attendee routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Ops.POST("/events/:eventId/checkin", m.handler.Checkin)
	ctx.Ops.POST("/events/:eventId/optout", m.handler.OptOut)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
