package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldops_backend/internal/adapters"
	"fieldops_backend/internal/events"
	"fieldops_backend/internal/geocode"
	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/internal/http/router"
	"fieldops_backend/internal/leads"
	leadservice "fieldops_backend/internal/leads/service"
	"fieldops_backend/internal/registry"
	"fieldops_backend/internal/routes"
	"fieldops_backend/internal/scheduler"
	"fieldops_backend/internal/territory"
	territoryhandler "fieldops_backend/internal/territory/handler"
	"fieldops_backend/internal/tracking"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/db"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	redisClient := initRedis(cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	schedClient, closeScheduler := initScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	registryModule := registry.NewModule(pool, cfg)
	if count, err := registryModule.Seed(ctx, cfg.GetRegistrySeedPath()); err != nil {
		log.Error("failed to seed disposition registry", "error", err)
		panic("failed to seed disposition registry: " + err.Error())
	} else if count > 0 {
		log.Info("disposition registry seeded", "statuses", count)
	}

	trackingModule := tracking.NewModule(pool, val, log)

	// The scheduler client satisfies the leads RevisitScheduler and territory
	// BulkEnqueuer ports; nil disables both without further wiring.
	leadsModule := leads.NewModule(
		pool, eventBus, val, cfg,
		registryModule.Service(),
		trackingModule.Store(),
		revisitScheduler(schedClient),
		log,
	)

	territoryLeadOps := adapters.NewTerritoryLeadOps(leadsModule.Repository())
	territoryModule := territory.NewModule(pool, eventBus, val, cfg, territoryLeadOps, bulkEnqueuer(schedClient), log)

	geocodeModule := geocode.NewModule(redisClient, cfg, log)

	routeSource := adapters.NewRouteLeadSource(leadsModule.Repository())
	originResolver := adapters.NewRouteOriginResolver(geocodeModule.Service())
	routesModule := routes.NewModule(eventBus, val, cfg, routeSource, originResolver, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			registryModule,
			leadsModule,
			territoryModule,
			routesModule,
			geocodeModule,
			trackingModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRedis(cfg *config.Config, log *logger.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not configured; geocode cache disabled")
		return nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("invalid REDIS_URL, geocode cache disabled", "error", err)
		return nil
	}
	return redis.NewClient(opt)
}

func initScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; revisit reminders and async bulk jobs disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

// revisitScheduler avoids handing a typed-nil interface to the leads module.
func revisitScheduler(client *scheduler.Client) leadservice.RevisitScheduler {
	if client == nil {
		return nil
	}
	return client
}

func bulkEnqueuer(client *scheduler.Client) territoryhandler.BulkEnqueuer {
	if client == nil {
		return nil
	}
	return client
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}
