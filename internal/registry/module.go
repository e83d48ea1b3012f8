package registry

import (
	"context"

	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/platform/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the disposition registry routes and service.
type Module struct {
	repo    *Repository
	service *Service
	handler *Handler
}

func NewModule(pool *pgxpool.Pool, cfg config.RegistryConfig) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo, cfg.GetRegistryCacheTTL())
	return &Module{
		repo:    repo,
		service: svc,
		handler: NewHandler(svc),
	}
}

// Seed upserts status definitions from the YAML seed file. A missing file is
// not an error; deployments may manage statuses entirely through the API.
func (m *Module) Seed(ctx context.Context, path string) (int, error) {
	return SeedFromFile(ctx, m.repo, path)
}

func (m *Module) Name() string {
	return "registry"
}

// Service returns the registry service for consumption by the leads module.
func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/dispositions")
	group.GET("", m.handler.List)
}

var _ apphttp.Module = (*Module)(nil)
