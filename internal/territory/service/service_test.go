package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fieldops_backend/internal/events"
	"fieldops_backend/internal/territory/repository"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/geo"
	"fieldops_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeTerritoryRepo struct {
	territories map[uuid.UUID]repository.Territory
	snapshots   map[uuid.UUID][]uuid.UUID
}

func newFakeTerritoryRepo() *fakeTerritoryRepo {
	return &fakeTerritoryRepo{
		territories: make(map[uuid.UUID]repository.Territory),
		snapshots:   make(map[uuid.UUID][]uuid.UUID),
	}
}

func (f *fakeTerritoryRepo) Create(_ context.Context, params repository.CreateParams) (repository.Territory, error) {
	t := repository.Territory{
		ID:        uuid.New(),
		Name:      params.Name,
		Vertices:  params.Vertices,
		CreatedBy: params.CreatedBy,
		CreatedAt: time.Now(),
	}
	f.territories[t.ID] = t
	return t, nil
}

func (f *fakeTerritoryRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Territory, error) {
	t, ok := f.territories[id]
	if !ok {
		return repository.Territory{}, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeTerritoryRepo) List(_ context.Context) ([]repository.Territory, error) {
	out := make([]repository.Territory, 0, len(f.territories))
	for _, t := range f.territories {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTerritoryRepo) SetLeadSnapshot(_ context.Context, id uuid.UUID, leadIDs []uuid.UUID) error {
	if _, ok := f.territories[id]; !ok {
		return repository.ErrNotFound
	}
	f.snapshots[id] = leadIDs
	return nil
}

func (f *fakeTerritoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.territories[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.territories, id)
	return nil
}

type fakeLeadOps struct {
	mu        sync.Mutex
	leads     []CandidateLead
	assigned  map[uuid.UUID]uuid.UUID
	unclaimed map[uuid.UUID]bool
	failIDs   map[uuid.UUID]bool
}

func newFakeLeadOps(leads []CandidateLead) *fakeLeadOps {
	return &fakeLeadOps{
		leads:     leads,
		assigned:  make(map[uuid.UUID]uuid.UUID),
		unclaimed: make(map[uuid.UUID]bool),
		failIDs:   make(map[uuid.UUID]bool),
	}
}

func (f *fakeLeadOps) ListGeocoded(_ context.Context) ([]CandidateLead, error) {
	return f.leads, nil
}

func (f *fakeLeadOps) Assign(_ context.Context, leadID, assigneeID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[leadID] {
		return errors.New("assignment rejected")
	}
	f.assigned[leadID] = assigneeID
	return nil
}

func (f *fakeLeadOps) Unclaim(_ context.Context, leadID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[leadID] {
		return errors.New("unclaim rejected")
	}
	f.unclaimed[leadID] = true
	return nil
}

type progressBus struct {
	mu        sync.Mutex
	batches   []events.BulkProgress
	completed []events.TerritoryAssigned
}

func (b *progressBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch e := event.(type) {
	case events.BulkProgress:
		b.batches = append(b.batches, e)
	case events.TerritoryAssigned:
		b.completed = append(b.completed, e)
	}
}

func (b *progressBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *progressBus) Subscribe(string, events.Handler) {}

type testConfig struct {
	batchSize   int
	concurrency int
}

func (c testConfig) GetBulkBatchSize() int               { return c.batchSize }
func (c testConfig) GetBulkBatchDelay() time.Duration    { return 0 }
func (c testConfig) GetBulkBatchConcurrency() int        { return c.concurrency }
func (c testConfig) GetPolygonMinSpacingMeters() float64 { return 10 }

// square is a unit polygon around (40, -105) roughly 0.01 degrees on a side.
var square = []geo.Point{
	{Lat: 40.00, Lng: -105.01},
	{Lat: 40.01, Lng: -105.01},
	{Lat: 40.01, Lng: -105.00},
	{Lat: 40.00, Lng: -105.00},
}

func newTestService(repo Repository, leads LeadOps, bus events.Bus) *Service {
	svc := New(repo, leads, bus, testConfig{batchSize: 30, concurrency: 5}, logger.New("test"))
	svc.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return svc
}

func addSquare(t *testing.T, repo *fakeTerritoryRepo) repository.Territory {
	t.Helper()
	territory, err := repo.Create(context.Background(), repository.CreateParams{
		Name:      "North Block",
		Vertices:  square,
		CreatedBy: uuid.New(),
	})
	if err != nil {
		t.Fatalf("seeding territory: %v", err)
	}
	return territory
}

func insideLeads(n int) []CandidateLead {
	leads := make([]CandidateLead, 0, n)
	for i := 0; i < n; i++ {
		leads = append(leads, CandidateLead{
			ID:       uuid.New(),
			Position: geo.Point{Lat: 40.005, Lng: -105.005 + float64(i)*0.00001},
		})
	}
	return leads
}

func TestCaptureFiltersAndPersists(t *testing.T) {
	repo := newFakeTerritoryRepo()
	svc := newTestService(repo, newFakeLeadOps(nil), &progressBus{})

	// Duplicated samples closer than the spacing floor collapse into one vertex.
	samples := []geo.Point{
		{Lat: 40.00, Lng: -105.01},
		{Lat: 40.000001, Lng: -105.01},
		{Lat: 40.01, Lng: -105.01},
		{Lat: 40.01, Lng: -105.00},
		{Lat: 40.00, Lng: -105.00},
	}
	territory, err := svc.Capture(context.Background(), "North Block", samples, uuid.New())
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if len(territory.Vertices) != 4 {
		t.Fatalf("expected 4 vertices after spacing filter, got %d", len(territory.Vertices))
	}
}

func TestCaptureRejectsDegeneratePolygon(t *testing.T) {
	svc := newTestService(newFakeTerritoryRepo(), newFakeLeadOps(nil), &progressBus{})

	samples := []geo.Point{
		{Lat: 40.00, Lng: -105.00},
		{Lat: 40.000001, Lng: -105.00},
		{Lat: 40.000002, Lng: -105.00},
	}
	_, err := svc.Capture(context.Background(), "Too Small", samples, uuid.New())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLeadsInsideUsesContainment(t *testing.T) {
	repo := newFakeTerritoryRepo()
	territory := addSquare(t, repo)

	inside := CandidateLead{ID: uuid.New(), Position: geo.Point{Lat: 40.005, Lng: -105.005}}
	outside := CandidateLead{ID: uuid.New(), Position: geo.Point{Lat: 40.05, Lng: -105.005}}
	// Inside the bounding box but outside the polygon is impossible for an
	// axis-aligned square, so use a far point plus a boundary-adjacent one.
	nearEdge := CandidateLead{ID: uuid.New(), Position: geo.Point{Lat: 40.0099, Lng: -105.0001}}

	svc := newTestService(repo, newFakeLeadOps([]CandidateLead{inside, outside, nearEdge}), &progressBus{})
	got, err := svc.LeadsInside(context.Background(), territory.ID)
	if err != nil {
		t.Fatalf("LeadsInside failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 contained leads, got %d", len(got))
	}
}

func TestLeadsInsideUnknownTerritory(t *testing.T) {
	svc := newTestService(newFakeTerritoryRepo(), newFakeLeadOps(nil), &progressBus{})
	_, err := svc.LeadsInside(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBulkReassignBatches(t *testing.T) {
	repo := newFakeTerritoryRepo()
	territory := addSquare(t, repo)
	ops := newFakeLeadOps(insideLeads(65))
	bus := &progressBus{}
	svc := newTestService(repo, ops, bus)

	assignee := uuid.New()
	result, err := svc.BulkReassign(context.Background(), territory.ID, OpAssign, assignee)
	if err != nil {
		t.Fatalf("BulkReassign failed: %v", err)
	}
	if result.Processed != 65 || result.Failed != 0 {
		t.Fatalf("expected 65 processed 0 failed, got %+v", result)
	}
	if len(ops.assigned) != 65 {
		t.Fatalf("expected 65 assignments, got %d", len(ops.assigned))
	}

	// 65 leads in batches of 30 means three progress events: 30, 60, 65.
	if len(bus.batches) != 3 {
		t.Fatalf("expected 3 progress events, got %d", len(bus.batches))
	}
	wantCurrent := []int{30, 60, 65}
	for i, e := range bus.batches {
		if e.Current != wantCurrent[i] || e.Total != 65 {
			t.Fatalf("progress %d: expected %d/65, got %d/%d", i, wantCurrent[i], e.Current, e.Total)
		}
	}
	if len(bus.completed) != 1 || bus.completed[0].Processed != 65 {
		t.Fatalf("expected completion event with 65 processed, got %+v", bus.completed)
	}
	if len(repo.snapshots[territory.ID]) != 65 {
		t.Fatalf("expected a 65-lead snapshot, got %d", len(repo.snapshots[territory.ID]))
	}
}

func TestBulkUnclaimReleasesLeads(t *testing.T) {
	repo := newFakeTerritoryRepo()
	territory := addSquare(t, repo)
	ops := newFakeLeadOps(insideLeads(5))
	svc := newTestService(repo, ops, &progressBus{})

	result, err := svc.BulkReassign(context.Background(), territory.ID, OpUnclaim, uuid.Nil)
	if err != nil {
		t.Fatalf("BulkReassign failed: %v", err)
	}
	if result.Processed != 5 {
		t.Fatalf("expected 5 processed, got %+v", result)
	}
	if len(ops.unclaimed) != 5 || len(ops.assigned) != 0 {
		t.Fatalf("unclaim op must release, not assign: %d unclaimed, %d assigned", len(ops.unclaimed), len(ops.assigned))
	}
}

func TestBulkRejectsUnknownOp(t *testing.T) {
	repo := newFakeTerritoryRepo()
	territory := addSquare(t, repo)
	svc := newTestService(repo, newFakeLeadOps(nil), &progressBus{})

	_, err := svc.BulkReassign(context.Background(), territory.ID, BulkOp("promote"), uuid.New())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBulkReassignIsolatesFailures(t *testing.T) {
	repo := newFakeTerritoryRepo()
	territory := addSquare(t, repo)
	leads := insideLeads(40)
	ops := newFakeLeadOps(leads)
	ops.failIDs[leads[3].ID] = true
	ops.failIDs[leads[35].ID] = true
	svc := newTestService(repo, ops, &progressBus{})

	result, err := svc.BulkReassign(context.Background(), territory.ID, OpAssign, uuid.New())
	if err != nil {
		t.Fatalf("BulkReassign failed: %v", err)
	}
	if result.Processed != 38 || result.Failed != 2 {
		t.Fatalf("expected 38 processed 2 failed, got %+v", result)
	}
	if len(ops.assigned) != 38 {
		t.Fatalf("failing leads must be skipped, got %d assignments", len(ops.assigned))
	}
}

func TestBulkReassignStopsOnCancellation(t *testing.T) {
	repo := newFakeTerritoryRepo()
	territory := addSquare(t, repo)
	ops := newFakeLeadOps(insideLeads(65))
	svc := newTestService(repo, ops, &progressBus{})

	ctx, cancel := context.WithCancel(context.Background())
	svc.sleep = func(ctx context.Context, _ time.Duration) error {
		// Cancel during the pause after the first batch.
		cancel()
		return ctx.Err()
	}

	result, err := svc.BulkReassign(ctx, territory.ID, OpAssign, uuid.New())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.Processed != 30 {
		t.Fatalf("expected the first batch to complete before the stop, got %+v", result)
	}
}

func TestBulkReassignEmptyTerritory(t *testing.T) {
	repo := newFakeTerritoryRepo()
	territory := addSquare(t, repo)
	bus := &progressBus{}
	svc := newTestService(repo, newFakeLeadOps(nil), bus)

	result, err := svc.BulkReassign(context.Background(), territory.ID, OpAssign, uuid.New())
	if err != nil {
		t.Fatalf("BulkReassign failed: %v", err)
	}
	if result.Processed != 0 || result.Failed != 0 {
		t.Fatalf("expected zero result, got %+v", result)
	}
	if len(bus.batches) != 0 {
		t.Fatalf("no batches expected for an empty territory")
	}
}

func TestBulkReassignClampsMalformedConfig(t *testing.T) {
	repo := newFakeTerritoryRepo()
	territory := addSquare(t, repo)
	leads := newFakeLeadOps(insideLeads(5))
	bus := &progressBus{}

	// Zero values stand in for unparseable env settings. The run must still
	// terminate and apply every lead.
	svc := New(repo, leads, bus, testConfig{batchSize: 0, concurrency: 0}, logger.New("test"))
	svc.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	result, err := svc.BulkReassign(context.Background(), territory.ID, OpAssign, uuid.New())
	if err != nil {
		t.Fatalf("BulkReassign failed: %v", err)
	}
	if result.Processed != 5 || result.Failed != 0 {
		t.Fatalf("expected all 5 leads processed, got %+v", result)
	}
	if len(bus.batches) != 1 {
		t.Fatalf("expected a single batch under the default size, got %d", len(bus.batches))
	}
}
