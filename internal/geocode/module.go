package geocode

import (
	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// Module wires the geocode lookup HTTP routes.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates the geocode module. redisClient may be nil to run without
// a cache.
func NewModule(redisClient *redis.Client, cfg config.GeocodeConfig, log *logger.Logger) *Module {
	var cache *Cache
	if redisClient != nil {
		cache = NewCache(redisClient, cfg.GetGeocodeCacheTTL(), log)
	}

	svc := NewService(cache, cfg.GetGeocodeCountryCodes(), log)
	h := NewHandler(svc)
	return &Module{handler: h, service: svc}
}

func (m *Module) Name() string {
	return "geocode"
}

// Service returns the geocoding service for the coordinate backfill CLI.
func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/geocode")
	group.GET("", m.handler.Lookup)
}

var _ apphttp.Module = (*Module)(nil)
