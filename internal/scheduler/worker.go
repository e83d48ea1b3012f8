package scheduler

import (
	"context"
	"fmt"

	"fieldops_backend/internal/events"
	territorysvc "fieldops_backend/internal/territory/service"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	territory *territorysvc.Service
	bus       events.Bus
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, territory *territorysvc.Service, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		territory: territory,
		bus:       bus,
		log:       log,
	}

	mux.HandleFunc(TaskTerritoryBulkAssign, w.handleTerritoryBulkAssign)
	mux.HandleFunc(TaskRevisitReminder, w.handleRevisitReminder)

	return w, nil
}

func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleTerritoryBulkAssign(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseTerritoryBulkAssignPayload(task)
	if err != nil {
		return err
	}

	territoryID, err := uuid.Parse(payload.TerritoryID)
	if err != nil {
		return err
	}

	assigneeID := uuid.Nil
	if payload.AssigneeID != "" {
		assigneeID, err = uuid.Parse(payload.AssigneeID)
		if err != nil {
			return err
		}
	}

	result, err := w.territory.BulkReassign(ctx, territoryID, territorysvc.BulkOp(payload.Op), assigneeID)
	if err != nil {
		return err
	}

	w.log.Info("territory bulk operation completed",
		"territoryId", territoryID,
		"op", payload.Op,
		"processed", result.Processed,
		"failed", result.Failed,
	)
	return nil
}

func (w *Worker) handleRevisitReminder(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseRevisitReminderPayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}
	revisitID, err := uuid.Parse(payload.RevisitID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return err
	}

	return w.bus.PublishSync(ctx, events.RevisitDue{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		RevisitID: revisitID,
		UserID:    userID,
	})
}
