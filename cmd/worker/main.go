package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fieldops_backend/internal/adapters"
	"fieldops_backend/internal/events"
	leadrepo "fieldops_backend/internal/leads/repository"
	"fieldops_backend/internal/scheduler"
	territoryrepo "fieldops_backend/internal/territory/repository"
	territorysvc "fieldops_backend/internal/territory/service"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/db"
	"fieldops_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "queue", cfg.AsynqQueueName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	leadOps := adapters.NewTerritoryLeadOps(leadrepo.New(pool))
	territoryService := territorysvc.New(territoryrepo.New(pool), leadOps, eventBus, cfg, log)

	worker, err := scheduler.NewWorker(cfg, territoryService, eventBus, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	go func() {
		<-ctx.Done()
		log.Info("shutdown signal received, stopping worker")
		worker.Shutdown()
	}()

	if err := worker.Run(); err != nil {
		log.Error("worker error", "error", err)
		panic("worker error: " + err.Error())
	}
}
