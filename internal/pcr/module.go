// Package pcr module wiring. The aggregate logic lives in this package
// root; persistence and HTTP surface live in the subpackages.
package pcr

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"event_messaging_backend/internal/events"
	apphttp "event_messaging_backend/internal/http"
	"event_messaging_backend/internal/pcr/handler"
	"event_messaging_backend/internal/pcr/repository"
	"event_messaging_backend/internal/pcr/service"
	"event_messaging_backend/platform/logger"
)

// Module is the PCR bounded context module implementing http.Module.
type Module struct {
	svc     *service.Service
	handler *handler.Handler
}

// NewModule creates and initializes the PCR module.
func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	return &Module{
		svc:     svc,
		handler: handler.New(svc),
	}
}

// Service exposes the PCR service to sibling modules (dispatch handlers,
// the quarterly scheduler task).
func (m *Module) Service() *service.Service {
	return m.svc
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pcr"
}

// RegisterRoutes mounts the aggregate read endpoint.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Ops.GET("/pcr/:subjectType/:subjectId", m.handler.GetSummary)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
