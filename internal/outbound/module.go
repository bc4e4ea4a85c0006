// Package outbound module wiring. Planning and scheduling live in the
// service subpackage; persistence and the ops surface in the rest.
package outbound

import (
	"github.com/jackc/pgx/v5/pgxpool"

	agendasvc "event_messaging_backend/internal/agenda/service"
	attendeesrepo "event_messaging_backend/internal/attendees/repository"
	"event_messaging_backend/internal/events"
	apphttp "event_messaging_backend/internal/http"
	"event_messaging_backend/internal/outbound/handler"
	"event_messaging_backend/internal/outbound/repository"
	"event_messaging_backend/internal/outbound/service"
	"event_messaging_backend/platform/lanes"
	"event_messaging_backend/platform/logger"
	"event_messaging_backend/platform/validator"
)

// Module is the outbound scheduling bounded context module implementing
// http.Module.
type Module struct {
	svc     *service.Service
	repo    *repository.Repository
	handler *handler.Handler
	log     *logger.Logger
}

// NewModule creates and initializes the outbound module.
func NewModule(
	pool *pgxpool.Pool,
	attendees *attendeesrepo.Repository,
	agenda *agendasvc.Service,
	tasks service.TaskScheduler,
	laneSvc *lanes.Service,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, attendees, agenda, tasks, laneSvc, bus, log)
	return &Module{
		svc:     svc,
		repo:    repo,
		handler: handler.New(svc, val),
		log:     log,
	}
}

// Service exposes the scheduling service for port wiring (attendee
// check-in, dispatch admin commands, worker delivery lookups).
func (m *Module) Service() *service.Service {
	return m.svc
}

// Repo exposes the scheduled message repository to the delivery worker.
func (m *Module) Repo() *repository.Repository {
	return m.repo
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "outbound"
}

// RegisterRoutes mounts the ops triggers and the admin event controls.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Ops.POST("/outbound/speaker-alerts", m.handler.TriggerSpeakerAlerts)
	ctx.Ops.POST("/outbound/sponsor-recommendations", m.handler.TriggerSponsorRecommendations)
	ctx.Ops.POST("/outbound/pcr-requests", m.handler.TriggerPcrRequests)
	ctx.Ops.POST("/outbound/wrapup", m.handler.TriggerWrapup)

	ctx.Admin.POST("/events/:eventId/delay", m.handler.DelayEvent)
	ctx.Admin.POST("/events/:eventId/end", m.handler.EndEvent)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
