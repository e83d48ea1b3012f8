// Package service implements territory capture, containment, and bulk
// reassignment of the leads a drawn polygon contains.
package service

import (
	"context"
	"errors"
	"time"

	"fieldops_backend/internal/events"
	"fieldops_backend/internal/territory/repository"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/geo"
	"fieldops_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const bulkOperation = "territory-reassign"

// CandidateLead is a geocoded lead eligible for territory containment.
type CandidateLead struct {
	ID       uuid.UUID
	Position geo.Point
}

// BulkOp selects the mutation a bulk run applies to each contained lead.
type BulkOp string

const (
	OpAssign  BulkOp = "assign"
	OpUnclaim BulkOp = "unclaim"
)

// LeadOps is the lead-context collaborator. Implemented by an adapter over
// the leads module so the territory context stays decoupled from it.
type LeadOps interface {
	ListGeocoded(ctx context.Context) ([]CandidateLead, error)
	Assign(ctx context.Context, leadID uuid.UUID, assigneeID uuid.UUID) error
	Unclaim(ctx context.Context, leadID uuid.UUID) error
}

// Repository defines the territory persistence interface the service needs.
type Repository interface {
	Create(ctx context.Context, params repository.CreateParams) (repository.Territory, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Territory, error)
	List(ctx context.Context) ([]repository.Territory, error)
	SetLeadSnapshot(ctx context.Context, id uuid.UUID, leadIDs []uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// BulkResult reports the outcome of a bulk reassignment. Failed counts
// individual leads whose assignment errored; they are skipped, not retried.
type BulkResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

type Service struct {
	repo  Repository
	leads LeadOps
	bus   events.Bus
	cfg   config.TerritoryConfig
	log   *logger.Logger

	batchSize   int
	concurrency int

	// sleep is swapped out in tests to avoid real batch delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates the territory service. Batch size defaults to 30 and batch
// concurrency to 1 when the configured values are non-positive.
func New(repo Repository, leads LeadOps, bus events.Bus, cfg config.TerritoryConfig, log *logger.Logger) *Service {
	batchSize := cfg.GetBulkBatchSize()
	if batchSize < 1 {
		batchSize = 30
	}
	concurrency := cfg.GetBulkBatchConcurrency()
	if concurrency < 1 {
		concurrency = 1
	}

	return &Service{
		repo:        repo,
		leads:       leads,
		bus:         bus,
		cfg:         cfg,
		log:         log,
		batchSize:   batchSize,
		concurrency: concurrency,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Capture thins a drag-gesture sample trail and persists it as a territory.
// Fewer than three surviving vertices cannot form a polygon.
func (s *Service) Capture(ctx context.Context, name string, samples []geo.Point, createdBy uuid.UUID) (repository.Territory, error) {
	vertices := geo.FilterCapture(samples, s.cfg.GetPolygonMinSpacingMeters())
	if len(vertices) < 3 {
		return repository.Territory{}, apperr.Validation("a territory needs at least 3 points after spacing filtering")
	}

	return s.repo.Create(ctx, repository.CreateParams{
		Name:      name,
		Vertices:  vertices,
		CreatedBy: createdBy,
	})
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (repository.Territory, error) {
	t, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Territory{}, apperr.NotFound("territory not found")
	}
	return t, err
}

func (s *Service) List(ctx context.Context) ([]repository.Territory, error) {
	return s.repo.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("territory not found")
	}
	return err
}

// LeadsInside returns the geocoded leads contained by a territory's polygon.
// A cheap bounding-box check rejects most candidates before the ray cast.
func (s *Service) LeadsInside(ctx context.Context, territoryID uuid.UUID) ([]CandidateLead, error) {
	t, err := s.GetByID(ctx, territoryID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.leads.ListGeocoded(ctx)
	if err != nil {
		return nil, err
	}

	// Close the ring before testing; capture stores the open vertex list.
	polygon := geo.ClosePolygon(t.Vertices)

	bounds := geo.BoundingBox(polygon)
	inside := make([]CandidateLead, 0)
	for _, c := range candidates {
		if !bounds.Contains(c.Position) {
			continue
		}
		if geo.PolygonContains(polygon, c.Position) {
			inside = append(inside, c)
		}
	}
	return inside, nil
}

// BulkReassign applies op to every lead inside the territory, in batches with
// a fixed pause between them. The contained-lead ids are snapshotted on the
// territory before any mutation. A failing lead is counted and skipped;
// cancellation between batches stops the run with partial counts.
func (s *Service) BulkReassign(ctx context.Context, territoryID uuid.UUID, op BulkOp, assigneeID uuid.UUID) (BulkResult, error) {
	if op != OpAssign && op != OpUnclaim {
		return BulkResult{}, apperr.Validation("unknown bulk operation: " + string(op))
	}

	inside, err := s.LeadsInside(ctx, territoryID)
	if err != nil {
		return BulkResult{}, err
	}

	ids := make([]uuid.UUID, 0, len(inside))
	for _, lead := range inside {
		ids = append(ids, lead.ID)
	}
	if err := s.repo.SetLeadSnapshot(ctx, territoryID, ids); err != nil {
		return BulkResult{}, err
	}

	var result BulkResult
	total := len(inside)
	batchSize := s.batchSize
	delay := s.cfg.GetBulkBatchDelay()

	for start := 0; start < total; start += batchSize {
		if start > 0 && delay > 0 {
			if err := s.sleep(ctx, delay); err != nil {
				return result, err
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		end := start + batchSize
		if end > total {
			end = total
		}
		failed := s.applyBatch(ctx, inside[start:end], op, assigneeID)

		result.Processed += end - start - failed
		result.Failed += failed

		s.log.BulkProgress(bulkOperation, end, total, result.Failed)
		s.bus.Publish(ctx, events.BulkProgress{
			BaseEvent: events.NewBaseEvent(),
			Operation: bulkOperation,
			Current:   end,
			Total:     total,
			Failed:    result.Failed,
		})
	}

	s.bus.Publish(ctx, events.TerritoryAssigned{
		BaseEvent:   events.NewBaseEvent(),
		TerritoryID: territoryID,
		AssigneeID:  assigneeID,
		Processed:   result.Processed,
		Failed:      result.Failed,
	})

	return result, nil
}

// applyBatch runs one batch with bounded concurrency and returns the number
// of leads that failed. Individual failures never abort the batch.
func (s *Service) applyBatch(ctx context.Context, batch []CandidateLead, op BulkOp, assigneeID uuid.UUID) int {
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	failures := make([]bool, len(batch))
	for i, lead := range batch {
		i, lead := i, lead
		g.Go(func() error {
			var err error
			switch op {
			case OpUnclaim:
				err = s.leads.Unclaim(ctx, lead.ID)
			default:
				err = s.leads.Assign(ctx, lead.ID, assigneeID)
			}
			if err != nil {
				s.log.Error("bulk operation failed for lead", "op", string(op), "leadId", lead.ID, "error", err)
				failures[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, f := range failures {
		if f {
			failed++
		}
	}
	return failed
}
