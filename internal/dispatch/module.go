// Package dispatch module wiring. Classification, the pipeline,
// persistence, and the webhook surface live in the subpackages.
package dispatch

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"event_messaging_backend/internal/dispatch/handler"
	"event_messaging_backend/internal/dispatch/repository"
	"event_messaging_backend/internal/dispatch/service"
	"event_messaging_backend/internal/events"
	apphttp "event_messaging_backend/internal/http"
	"event_messaging_backend/platform/lanes"
	"event_messaging_backend/platform/logger"
	"event_messaging_backend/platform/validator"
)

// Module is the dispatch bounded context module implementing http.Module.
type Module struct {
	svc     *service.Service
	handler *handler.Handler
}

// ModuleDeps collects the sibling collaborators the dispatcher routes
// into, typed by the service ports so composition stays swap-friendly.
// Tagger stays nil when CRM tagging is disabled.
type ModuleDeps struct {
	Attendees service.AttendeeDirectory
	Convo     service.Conversations
	Agenda    service.AgendaDirectory
	Outbound  service.Scheduler
	Pcr       service.ScoreRecorder
	Concierge service.Answerer
	Tagger    service.TagApplier
	Lanes     *lanes.Service
}

// NewModule creates and initializes the dispatch module.
func NewModule(pool *pgxpool.Pool, deps ModuleDeps, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, deps.Attendees, deps.Convo, deps.Agenda,
		deps.Outbound, deps.Pcr, deps.Concierge, deps.Tagger, deps.Lanes, bus, log)
	return &Module{
		svc:     svc,
		handler: handler.New(svc, val),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "dispatch"
}

// RegisterRoutes mounts the inbound webhook with shared-secret auth and
// the stricter webhook rate limit.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/webhook/messages", ctx.WebhookRateLimiter, ctx.WebhookAuth, m.handler.InboundMessage)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
