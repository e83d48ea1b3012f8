// Package scheduler wires background jobs through asynq: deferred revisit
// reminders and queued territory bulk operations.
package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"fieldops_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleRevisitReminder enqueues a reminder that fires at the revisit time.
func (c *Client) ScheduleRevisitReminder(ctx context.Context, leadID, revisitID, userID uuid.UUID, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewRevisitReminderTask(RevisitReminderPayload{
		LeadID:    leadID.String(),
		RevisitID: revisitID.String(),
		UserID:    userID.String(),
	})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(runAt), asynq.Queue(c.queue))
	return err
}

// EnqueueTerritoryBulkAssign queues a territory bulk operation for the worker.
func (c *Client) EnqueueTerritoryBulkAssign(ctx context.Context, territoryID uuid.UUID, op string, assigneeID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}

	payload := TerritoryBulkAssignPayload{
		TerritoryID: territoryID.String(),
		Op:          op,
	}
	if assigneeID != uuid.Nil {
		payload.AssigneeID = assigneeID.String()
	}

	task, err := NewTerritoryBulkAssignTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(3))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
