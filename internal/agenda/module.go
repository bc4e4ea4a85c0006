// Package agenda provides the session/agenda bounded context module.
package agenda

import (
	"event_messaging_backend/internal/agenda/handler"
	"event_messaging_backend/internal/agenda/repository"
	"event_messaging_backend/internal/agenda/service"
	apphttp "event_messaging_backend/internal/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the agenda bounded context module implementing http.Module.
type Module struct {
	svc     *service.Service
	handler *handler.Handler
}

// NewModule creates and initializes the agenda module.
func NewModule(pool *pgxpool.Pool) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	return &Module{
		svc:     svc,
		handler: handler.New(svc),
	}
}

// Service exposes the agenda read service to sibling modules
// (conversation routing, outbound scheduling, concierge context).
func (m *Module) Service() *service.Service {
	return m.svc
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "agenda"
}

// RegisterRoutes mounts agenda read routes for ops tooling.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Ops.GET("/events/:eventId/sessions", m.handler.GetEventSessions)
	ctx.Ops.GET("/sessions/:id", m.handler.GetSessionByID)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
