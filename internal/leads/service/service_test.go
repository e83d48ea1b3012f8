package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldops_backend/internal/events"
	"fieldops_backend/internal/leads/domain"
	"fieldops_backend/internal/leads/proximity"
	"fieldops_backend/internal/leads/repository"
	"fieldops_backend/internal/leads/transport"
	"fieldops_backend/internal/registry"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/geo"
	"fieldops_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory Repository capturing the lifecycle mutations.
type fakeRepo struct {
	leads   map[uuid.UUID]repository.Lead
	history map[uuid.UUID][]repository.HistoryEntry

	claimErr  error
	commitErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:   make(map[uuid.UUID]repository.Lead),
		history: make(map[uuid.UUID][]repository.HistoryEntry),
	}
}

func (f *fakeRepo) add(lead repository.Lead) repository.Lead {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.Status == "" {
		lead.Status = registry.StatusUnclaimed
	}
	f.leads[lead.ID] = lead
	return lead
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	return f.add(repository.Lead{
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Phone:     params.Phone,
		Latitude:  params.Latitude,
		Longitude: params.Longitude,
	}), nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeRepo) List(_ context.Context, _ repository.ListFilter) ([]repository.Lead, error) {
	out := make([]repository.Lead, 0, len(f.leads))
	for _, l := range f.leads {
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeRepo) Claim(_ context.Context, id, userID uuid.UUID) (repository.Lead, error) {
	if f.claimErr != nil {
		return repository.Lead{}, f.claimErr
	}
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if lead.ClaimedBy != nil && *lead.ClaimedBy != userID {
		return repository.Lead{}, repository.ErrClaimConflict
	}
	lead.ClaimedBy = &userID
	lead.Status = registry.StatusClaimed
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeRepo) Unclaim(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.ClaimedBy = nil
	lead.AssignedTo = nil
	lead.Status = registry.StatusUnclaimed
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeRepo) SetAssigned(_ context.Context, id uuid.UUID, assigneeID *uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.AssignedTo = assigneeID
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeRepo) CommitDisposition(_ context.Context, params repository.CommitDispositionParams) (repository.Lead, repository.HistoryEntry, uuid.UUID, error) {
	if f.commitErr != nil {
		return repository.Lead{}, repository.HistoryEntry{}, uuid.Nil, f.commitErr
	}
	lead, ok := f.leads[params.LeadID]
	if !ok {
		return repository.Lead{}, repository.HistoryEntry{}, uuid.Nil, repository.ErrNotFound
	}
	lead.Status = params.Status
	if params.ClaimTo != nil {
		lead.ClaimedBy = params.ClaimTo
	}
	now := time.Now()
	lead.DispositionedAt = &now
	f.leads[params.LeadID] = lead

	entry := repository.HistoryEntry{
		ID:                uuid.New(),
		LeadID:            params.LeadID,
		Disposition:       params.Status,
		CountsAsDoorKnock: params.CountsAsDoorKnock,
		UserID:            params.UserID,
		UserName:          params.UserName,
		GPSLat:            params.GPSLat,
		GPSLng:            params.GPSLng,
		GPSAccuracyM:      params.GPSAccuracyM,
		DistanceFromAddrM: params.DistanceFromAddrM,
		CreatedAt:         now,
	}
	// Newest first, matching the repository's read order.
	f.history[params.LeadID] = append([]repository.HistoryEntry{entry}, f.history[params.LeadID]...)

	revisitID := uuid.Nil
	if params.ScheduledRevisit != nil {
		revisitID = uuid.New()
	}
	return lead, entry, revisitID, nil
}

func (f *fakeRepo) ListHistory(_ context.Context, leadID uuid.UUID) ([]repository.HistoryEntry, error) {
	return f.history[leadID], nil
}

// fakeRegistry serves definitions from a fixed map.
type fakeRegistry struct {
	defs map[string]registry.Definition
}

func (f *fakeRegistry) Get(_ context.Context, id string) (registry.Definition, error) {
	def, ok := f.defs[id]
	if !ok {
		return registry.Definition{}, apperr.Validation("unknown disposition status: " + id)
	}
	return def, nil
}

// fakeVerifier returns a canned result or error.
type fakeVerifier struct {
	result proximity.Result
	err    error
	calls  int
}

func (f *fakeVerifier) Verify(_ context.Context, _ uuid.UUID, _ geo.Point, _ *proximity.Fix) (proximity.Result, error) {
	f.calls++
	return f.result, f.err
}

// fakeScheduler records revisit reminder scheduling.
type fakeScheduler struct {
	scheduled []time.Time
	err       error
}

func (f *fakeScheduler) ScheduleRevisitReminder(_ context.Context, _, _, _ uuid.UUID, runAt time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.scheduled = append(f.scheduled, runAt)
	return nil
}

// recordingBus captures published events by name.
type recordingBus struct {
	published []string
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event.EventName())
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event.EventName())
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type fixture struct {
	svc       *Service
	repo      *fakeRepo
	verifier  *fakeVerifier
	scheduler *fakeScheduler
	bus       *recordingBus
}

func newFixture() *fixture {
	repo := newFakeRepo()
	reg := &fakeRegistry{defs: map[string]registry.Definition{
		"no-answer":   {ID: "no-answer", Name: "No Answer", CountsAsDoorKnock: true},
		"not-home":    {ID: "not-home", Name: "Not Home", CountsAsDoorKnock: true},
		"go-back":     {ID: "go-back", Name: "Go Back", CountsAsDoorKnock: true},
		"dead":        {ID: "dead", Name: "Dead", CountsAsDoorKnock: false},
		"appointment": {ID: "appointment", Name: "Appointment", SpecialBehavior: registry.SpecialSchedulingManager},
	}}
	verifier := &fakeVerifier{}
	scheduler := &fakeScheduler{}
	bus := &recordingBus{}
	svc := New(repo, reg, verifier, []string{"setter", "manager", "sales"}, bus, scheduler, logger.New("test"))
	return &fixture{svc: svc, repo: repo, verifier: verifier, scheduler: scheduler, bus: bus}
}

func ptrF(v float64) *float64 { return &v }

func setterActor() domain.Actor {
	return domain.Actor{ID: uuid.New(), Name: "Sam Setter", Role: domain.RoleSetter}
}

func leadWithCoords(f *fixture) repository.Lead {
	return f.repo.add(repository.Lead{
		FirstName: "Pat",
		LastName:  "Homeowner",
		Latitude:  ptrF(40.0),
		Longitude: ptrF(-105.0),
	})
}

func TestClaimUnclaimed(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)
	actor := setterActor()

	resp, err := f.svc.Claim(context.Background(), lead.ID, actor)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if resp.ClaimedBy == nil || *resp.ClaimedBy != actor.ID {
		t.Fatalf("expected claimedBy %s, got %v", actor.ID, resp.ClaimedBy)
	}
	if resp.Status != registry.StatusClaimed {
		t.Fatalf("expected status claimed, got %s", resp.Status)
	}
	if len(f.bus.published) != 1 || f.bus.published[0] != "leads.lead.claimed" {
		t.Fatalf("expected leads.lead.claimed event, got %v", f.bus.published)
	}
}

func TestClaimIdempotentForSameUser(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)
	actor := setterActor()

	if _, err := f.svc.Claim(context.Background(), lead.ID, actor); err != nil {
		t.Fatalf("first Claim failed: %v", err)
	}
	resp, err := f.svc.Claim(context.Background(), lead.ID, actor)
	if err != nil {
		t.Fatalf("repeat Claim by owner should succeed: %v", err)
	}
	if resp.ClaimedBy == nil || *resp.ClaimedBy != actor.ID {
		t.Fatalf("repeat claim changed ownership: %v", resp.ClaimedBy)
	}
}

func TestClaimConflict(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)

	if _, err := f.svc.Claim(context.Background(), lead.ID, setterActor()); err != nil {
		t.Fatalf("first Claim failed: %v", err)
	}
	_, err := f.svc.Claim(context.Background(), lead.ID, setterActor())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestClaimNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Claim(context.Background(), uuid.New(), setterActor())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUnclaimByClaimant(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)
	actor := setterActor()

	if _, err := f.svc.Claim(context.Background(), lead.ID, actor); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	resp, err := f.svc.Unclaim(context.Background(), lead.ID, actor)
	if err != nil {
		t.Fatalf("Unclaim failed: %v", err)
	}
	if resp.ClaimedBy != nil {
		t.Fatalf("expected lead released, claimedBy=%v", resp.ClaimedBy)
	}
	if resp.Status != registry.StatusUnclaimed {
		t.Fatalf("expected status unclaimed, got %s", resp.Status)
	}
}

func TestUnclaimByNonClaimantForbidden(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)

	if _, err := f.svc.Claim(context.Background(), lead.ID, setterActor()); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	_, err := f.svc.Unclaim(context.Background(), lead.ID, setterActor())
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUnclaimByAdmin(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)

	if _, err := f.svc.Claim(context.Background(), lead.ID, setterActor()); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	admin := domain.Actor{ID: uuid.New(), Name: "Ada Admin", Role: domain.RoleAdmin}
	if _, err := f.svc.Unclaim(context.Background(), lead.ID, admin); err != nil {
		t.Fatalf("admin Unclaim failed: %v", err)
	}
}

func TestAssignRequiresManager(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)
	assignee := uuid.New()

	_, err := f.svc.Assign(context.Background(), lead.ID, &assignee, setterActor())
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for setter, got %v", err)
	}

	manager := domain.Actor{ID: uuid.New(), Name: "Max Manager", Role: domain.RoleManager}
	resp, err := f.svc.Assign(context.Background(), lead.ID, &assignee, manager)
	if err != nil {
		t.Fatalf("manager Assign failed: %v", err)
	}
	if resp.AssignedTo == nil || *resp.AssignedTo != assignee {
		t.Fatalf("expected assignedTo %s, got %v", assignee, resp.AssignedTo)
	}
}

func TestAssignDoesNotTouchClaim(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)
	claimant := setterActor()

	if _, err := f.svc.Claim(context.Background(), lead.ID, claimant); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	assignee := uuid.New()
	manager := domain.Actor{ID: uuid.New(), Name: "Max Manager", Role: domain.RoleManager}
	resp, err := f.svc.Assign(context.Background(), lead.ID, &assignee, manager)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if resp.ClaimedBy == nil || *resp.ClaimedBy != claimant.ID {
		t.Fatalf("assignment must not disturb claim ownership: %v", resp.ClaimedBy)
	}
}

func TestDispositionCommitsAndClaims(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)
	actor := setterActor()
	f.verifier.result = proximity.Result{
		Sample:    &proximity.Fix{Position: geo.Point{Lat: 40.0001, Lng: -105.0}, AccuracyM: 8},
		DistanceM: ptrF(11.1),
	}

	resp, err := f.svc.Disposition(context.Background(), lead.ID, transport.DispositionRequest{Status: "no-answer"}, actor)
	if err != nil {
		t.Fatalf("Disposition failed: %v", err)
	}
	if resp.Lead == nil || resp.Lead.Status != "no-answer" {
		t.Fatalf("expected lead status no-answer, got %+v", resp.Lead)
	}
	if resp.Lead.ClaimedBy == nil || *resp.Lead.ClaimedBy != actor.ID {
		t.Fatalf("disposition should auto-claim for the actor: %v", resp.Lead.ClaimedBy)
	}
	if resp.Entry == nil || !resp.Entry.CountsAsDoorKnock {
		t.Fatalf("expected door-knock entry, got %+v", resp.Entry)
	}
	if resp.Entry.DistanceFromAddrM == nil || *resp.Entry.DistanceFromAddrM != 11.1 {
		t.Fatalf("expected recorded distance 11.1, got %v", resp.Entry.DistanceFromAddrM)
	}
}

func TestDispositionHistoryGrowsNewestFirst(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)
	actor := setterActor()
	f.verifier.result = proximity.Result{
		Sample:    &proximity.Fix{Position: geo.Point{Lat: 40.0, Lng: -105.0}, AccuracyM: 5},
		DistanceM: ptrF(0),
	}

	statuses := []string{"no-answer", "not-home", "dead"}
	for _, status := range statuses {
		if _, err := f.svc.Disposition(context.Background(), lead.ID, transport.DispositionRequest{Status: status}, actor); err != nil {
			t.Fatalf("Disposition %s failed: %v", status, err)
		}
	}

	history, err := f.svc.History(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != len(statuses) {
		t.Fatalf("expected %d entries, got %d", len(statuses), len(history))
	}
	if history[0].Disposition != "dead" {
		t.Fatalf("expected newest entry first, got %s", history[0].Disposition)
	}
}

func TestDispositionProximityRejectionAppendsNothing(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)
	f.verifier.err = apperr.Forbidden("too far from the lead address").
		WithDetails(map[string]float64{"distanceFeet": 413.4})

	_, err := f.svc.Disposition(context.Background(), lead.ID, transport.DispositionRequest{Status: "no-answer"}, setterActor())
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	history, _ := f.svc.History(context.Background(), lead.ID)
	if len(history) != 0 {
		t.Fatalf("rejected disposition must not append history, got %d entries", len(history))
	}
	if f.repo.leads[lead.ID].Status != registry.StatusUnclaimed {
		t.Fatalf("rejected disposition must not mutate the lead")
	}
}

func TestDispositionFailsOpenWithoutFix(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)
	f.verifier.result = proximity.Result{FailedOpen: true}

	resp, err := f.svc.Disposition(context.Background(), lead.ID, transport.DispositionRequest{Status: "no-answer"}, setterActor())
	if err != nil {
		t.Fatalf("Disposition should fail open: %v", err)
	}
	if !resp.GPSUnavailable {
		t.Fatalf("expected gpsUnavailable flag")
	}
	if resp.Entry.GPSLat != nil {
		t.Fatalf("failed-open commit must not record a GPS sample")
	}
}

func TestDispositionSkipsGateWhenLeadHasNoCoordinates(t *testing.T) {
	f := newFixture()
	lead := f.repo.add(repository.Lead{FirstName: "No", LastName: "Coords"})

	resp, err := f.svc.Disposition(context.Background(), lead.ID, transport.DispositionRequest{Status: "no-answer"}, setterActor())
	if err != nil {
		t.Fatalf("Disposition failed: %v", err)
	}
	if f.verifier.calls != 0 {
		t.Fatalf("verifier must not be consulted without lead coordinates")
	}
	if !resp.GPSUnavailable {
		t.Fatalf("expected gpsUnavailable flag when the gate is skipped")
	}
}

func TestDispositionAdminSkipsGate(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)
	admin := domain.Actor{ID: uuid.New(), Name: "Ada Admin", Role: domain.RoleAdmin}

	if _, err := f.svc.Disposition(context.Background(), lead.ID, transport.DispositionRequest{Status: "no-answer"}, admin); err != nil {
		t.Fatalf("admin Disposition failed: %v", err)
	}
	if f.verifier.calls != 0 {
		t.Fatalf("admins are exempt from the proximity gate")
	}
}

func TestDispositionAdminOverrideLeavesClaimant(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)
	claimant := setterActor()
	if _, err := f.svc.Claim(context.Background(), lead.ID, claimant); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	admin := domain.Actor{ID: uuid.New(), Name: "Ada Admin", Role: domain.RoleAdmin}
	req := transport.DispositionRequest{Status: "dead", AdminOverride: true}
	resp, err := f.svc.Disposition(context.Background(), lead.ID, req, admin)
	if err != nil {
		t.Fatalf("Disposition failed: %v", err)
	}
	if resp.Lead.ClaimedBy == nil || *resp.Lead.ClaimedBy != claimant.ID {
		t.Fatalf("admin override must leave the claimant untouched: %v", resp.Lead.ClaimedBy)
	}
}

func TestDispositionSchedulingManagerShortCircuits(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)

	resp, err := f.svc.Disposition(context.Background(), lead.ID, transport.DispositionRequest{Status: "appointment"}, setterActor())
	if err != nil {
		t.Fatalf("Disposition failed: %v", err)
	}
	if !resp.RequiresScheduler {
		t.Fatalf("expected requiresScheduler response")
	}
	if resp.Lead != nil {
		t.Fatalf("scheduling short-circuit must not commit a status")
	}
	if history, _ := f.svc.History(context.Background(), lead.ID); len(history) != 0 {
		t.Fatalf("scheduling short-circuit must not append history")
	}
}

func TestDispositionGoBackRequiresFutureSchedule(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)
	f.verifier.result = proximity.Result{FailedOpen: true}
	actor := setterActor()

	_, err := f.svc.Disposition(context.Background(), lead.ID, transport.DispositionRequest{Status: "go-back"}, actor)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("go-back without a date should fail validation, got %v", err)
	}

	past := time.Now().Add(-time.Hour)
	_, err = f.svc.Disposition(context.Background(), lead.ID, transport.DispositionRequest{Status: "go-back", ScheduledFor: &past}, actor)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("go-back in the past should fail validation, got %v", err)
	}

	future := time.Now().Add(48 * time.Hour)
	resp, err := f.svc.Disposition(context.Background(), lead.ID, transport.DispositionRequest{Status: "go-back", ScheduledFor: &future}, actor)
	if err != nil {
		t.Fatalf("go-back with future date failed: %v", err)
	}
	if resp.Lead.Status != "go-back" {
		t.Fatalf("expected go-back status, got %s", resp.Lead.Status)
	}
	if len(f.scheduler.scheduled) != 1 || !f.scheduler.scheduled[0].Equal(future) {
		t.Fatalf("expected one revisit reminder at %v, got %v", future, f.scheduler.scheduled)
	}
}

func TestDispositionReminderFailureIsNonFatal(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)
	f.verifier.result = proximity.Result{FailedOpen: true}
	f.scheduler.err = errors.New("queue down")

	future := time.Now().Add(24 * time.Hour)
	req := transport.DispositionRequest{Status: "go-back", ScheduledFor: &future}
	if _, err := f.svc.Disposition(context.Background(), lead.ID, req, setterActor()); err != nil {
		t.Fatalf("reminder failure must not fail the disposition: %v", err)
	}
}

func TestDispositionRejectsBuiltInStatuses(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)
	// Built-ins are registered like any other status but have dedicated operations.
	reg := f.svc.registry.(*fakeRegistry)
	reg.defs[registry.StatusClaimed] = registry.Definition{ID: registry.StatusClaimed}

	_, err := f.svc.Disposition(context.Background(), lead.ID, transport.DispositionRequest{Status: registry.StatusClaimed}, setterActor())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for built-in status, got %v", err)
	}
}

func TestDispositionUnknownStatus(t *testing.T) {
	f := newFixture()
	lead := leadWithCoords(f)

	_, err := f.svc.Disposition(context.Background(), lead.ID, transport.DispositionRequest{Status: "nope"}, setterActor())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
