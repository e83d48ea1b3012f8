// Package leads provides the lead lifecycle bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"fieldops_backend/internal/events"
	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/internal/leads/handler"
	"fieldops_backend/internal/leads/proximity"
	"fieldops_backend/internal/leads/repository"
	"fieldops_backend/internal/leads/service"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
// fixSource supplies last-known GPS positions for the proximity gate; scheduler
// may be nil when revisit reminders are disabled.
func NewModule(
	pool *pgxpool.Pool,
	eventBus events.Bus,
	val *validator.Validator,
	cfg config.ProximityConfig,
	registry service.Registry,
	fixSource proximity.FixSource,
	scheduler service.RevisitScheduler,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)

	verifier := proximity.New(
		cfg.GetProximityRadiusMeters(),
		cfg.GetGPSAcquireTimeout(),
		fixSource,
		log,
	)

	svc := service.New(repo, registry, verifier, cfg.GetProximityGatedRoles(), eventBus, scheduler, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lifecycle service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the lead repository for adapters in other contexts.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// All leads routes require authentication
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
