// Package routes provides the route optimizer bounded context module.
package routes

import (
	"fieldops_backend/internal/events"
	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/internal/routes/client"
	"fieldops_backend/internal/routes/handler"
	"fieldops_backend/internal/routes/service"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/validator"
)

// Module is the routes bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the routes module. source adapts the
// leads context; resolver adapts the geocoder for address-form origins and
// may be nil. Refinement is only wired when the routing service is enabled;
// the optimizer falls back to local ordering otherwise.
func NewModule(
	eventBus events.Bus,
	val *validator.Validator,
	cfg config.RoutingConfig,
	source service.LeadSource,
	resolver handler.OriginResolver,
	log *logger.Logger,
) *Module {
	var refiner service.Refiner
	if cfg.IsRoutingServiceEnabled() {
		refiner = client.New(cfg, log)
	}

	svc := service.New(source, refiner, eventBus, log)
	h := handler.New(svc, resolver, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "routes"
}

// RegisterRoutes mounts route optimizer routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/routes")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
