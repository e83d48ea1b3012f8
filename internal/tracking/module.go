package tracking

import (
	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires position ingest routes and exposes the fix store to the
// proximity gate.
type Module struct {
	handler *Handler
	store   *Store
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	store := NewStore()
	var repo *Repository
	if pool != nil {
		repo = NewRepository(pool)
	}
	h := NewHandler(store, repo, val, log)
	return &Module{handler: h, store: store}
}

func (m *Module) Name() string {
	return "tracking"
}

// Store returns the fix store; it implements proximity.FixSource.
func (m *Module) Store() *Store {
	return m.store
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/tracking")
	group.POST("/position", m.handler.Ingest)
	group.GET("/position", m.handler.Latest)
}

var _ apphttp.Module = (*Module)(nil)
