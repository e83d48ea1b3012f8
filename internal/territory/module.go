// Package territory provides the territory bounded context module: polygon
// capture, containment queries, and bulk reassignment of contained leads.
package territory

import (
	"fieldops_backend/internal/events"
	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/internal/territory/handler"
	"fieldops_backend/internal/territory/repository"
	"fieldops_backend/internal/territory/service"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/httpkit"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the territory bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the territory module. leadOps adapts the
// leads context; enqueuer may be nil to disable async reassignment.
func NewModule(
	pool *pgxpool.Pool,
	eventBus events.Bus,
	val *validator.Validator,
	cfg config.TerritoryConfig,
	leadOps service.LeadOps,
	enqueuer handler.BulkEnqueuer,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, leadOps, eventBus, cfg, log)
	h := handler.New(svc, enqueuer, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "territory"
}

// Service returns the territory service for the background worker.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts territory routes. Drawing and assigning territories
// is a manager action.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/territories")
	group.Use(httpkit.RequireAnyRole("manager", "admin"))
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
