// Package service orchestrates the lead lifecycle: claim, unclaim,
// disposition, and directed assignment.
package service

import (
	"context"
	"errors"
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
	"fieldops_backend/platform/phone"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the lifecycle
// service. This is a consumer-driven interface - only what the service needs.
type Repository interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	List(ctx context.Context, filter repository.ListFilter) ([]repository.Lead, error)
	Claim(ctx context.Context, id, userID uuid.UUID) (repository.Lead, error)
	Unclaim(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	SetAssigned(ctx context.Context, id uuid.UUID, assigneeID *uuid.UUID) (repository.Lead, error)
	CommitDisposition(ctx context.Context, params repository.CommitDispositionParams) (repository.Lead, repository.HistoryEntry, uuid.UUID, error)
	ListHistory(ctx context.Context, leadID uuid.UUID) ([]repository.HistoryEntry, error)
}

// Registry is the read-only disposition registry collaborator.
type Registry interface {
	Get(ctx context.Context, id string) (registry.Definition, error)
}

// Verifier is the proximity gate collaborator.
type Verifier interface {
	Verify(ctx context.Context, userID uuid.UUID, leadPos geo.Point, provided *proximity.Fix) (proximity.Result, error)
}

// RevisitScheduler schedules a go-back reminder at the revisit time.
// Implemented by the asynq scheduler client; nil disables reminders.
type RevisitScheduler interface {
	ScheduleRevisitReminder(ctx context.Context, leadID, revisitID, userID uuid.UUID, runAt time.Time) error
}

// Service handles lead lifecycle operations.
type Service struct {
	repo      Repository
	registry  Registry
	verifier  Verifier
	gated     domain.GatedRoles
	bus       events.Bus
	scheduler RevisitScheduler
	log       *logger.Logger
}

// New creates the lifecycle service.
func New(repo Repository, reg Registry, verifier Verifier, gatedRoles []string, bus events.Bus, scheduler RevisitScheduler, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		registry:  reg,
		verifier:  verifier,
		gated:     domain.NewGatedRoles(gatedRoles),
		bus:       bus,
		scheduler: scheduler,
		log:       log,
	}
}

// Create imports a lead with the built-in unclaimed status.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	req.Phone = phone.NormalizeE164(req.Phone)

	params := repository.CreateLeadParams{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		AddressStreet: req.Street,
		AddressCity:   req.City,
		AddressState:  req.State,
		AddressZip:    req.Zip,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
	}
	if req.Email != "" {
		params.Email = &req.Email
	}

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	return transport.ToLeadResponse(lead), nil
}

// GetByID returns a lead by id.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, err
	}
	return transport.ToLeadResponse(lead), nil
}

// List returns leads matching the filter.
func (s *Service) List(ctx context.Context, filter repository.ListFilter) ([]transport.LeadResponse, error) {
	leads, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]transport.LeadResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, transport.ToLeadResponse(l))
	}
	return out, nil
}

// History returns a lead's disposition history, newest first.
func (s *Service) History(ctx context.Context, leadID uuid.UUID) ([]transport.HistoryEntryResponse, error) {
	if _, err := s.GetByID(ctx, leadID); err != nil {
		return nil, err
	}

	entries, err := s.repo.ListHistory(ctx, leadID)
	if err != nil {
		return nil, err
	}
	return transport.ToHistoryResponse(entries), nil
}

// Claim takes exclusive ownership of a lead. A lost race surfaces as a
// recoverable conflict; nothing is mutated.
func (s *Service) Claim(ctx context.Context, leadID uuid.UUID, actor domain.Actor) (transport.LeadResponse, error) {
	lead, err := s.repo.Claim(ctx, leadID, actor.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		case errors.Is(err, repository.ErrClaimConflict):
			return transport.LeadResponse{}, apperr.Conflict("lead is already claimed by another user")
		}
		return transport.LeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadClaimed{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		UserID:    actor.ID,
	})

	return transport.ToLeadResponse(lead), nil
}

// Unclaim releases a lead. Allowed for the claimant or an admin.
func (s *Service) Unclaim(ctx context.Context, leadID uuid.UUID, actor domain.Actor) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, err
	}

	if err := domain.CheckUnclaim(lead.ClaimedBy, actor); err != nil {
		return transport.LeadResponse{}, err
	}

	lead, err = s.repo.Unclaim(ctx, leadID)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadUnclaimed{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		ActorID:   actor.ID,
	})

	return transport.ToLeadResponse(lead), nil
}

// Assign sets the directed assignment independently of claim ownership.
func (s *Service) Assign(ctx context.Context, leadID uuid.UUID, assigneeID *uuid.UUID, actor domain.Actor) (transport.LeadResponse, error) {
	if err := domain.CheckAssign(actor); err != nil {
		return transport.LeadResponse{}, err
	}

	lead, err := s.repo.SetAssigned(ctx, leadID, assigneeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, err
	}

	if assigneeID != nil {
		s.bus.Publish(ctx, events.LeadAssigned{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     lead.ID,
			AssigneeID: *assigneeID,
			AssignerID: actor.ID,
		})
	}

	return transport.ToLeadResponse(lead), nil
}

// Disposition records a door-knock outcome. Proximity failures and claim
// conflicts leave the lead untouched; the caller decides whether to retry.
func (s *Service) Disposition(ctx context.Context, leadID uuid.UUID, req transport.DispositionRequest, actor domain.Actor) (transport.DispositionResponse, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.DispositionResponse{}, apperr.NotFound("lead not found")
		}
		return transport.DispositionResponse{}, err
	}

	def, err := s.registry.Get(ctx, req.Status)
	if err != nil {
		return transport.DispositionResponse{}, err
	}

	plan, err := domain.PlanDisposition(def, actor, s.gated)
	if err != nil {
		return transport.DispositionResponse{}, err
	}

	if plan.RequiresScheduler {
		// No terminal status: the caller routes to the scheduling collaborator.
		return transport.DispositionResponse{RequiresScheduler: true}, nil
	}

	if plan.RequiresSchedule {
		if err := domain.ValidateSchedule(req.ScheduledFor, time.Now()); err != nil {
			return transport.DispositionResponse{}, err
		}
	}

	params := repository.CommitDispositionParams{
		LeadID:            lead.ID,
		Status:            def.ID,
		CountsAsDoorKnock: plan.CountsAsDoorKnock,
		UserID:            actor.ID,
		UserName:          actor.Name,
		ScheduledRevisit:  nil,
	}
	if plan.RequiresSchedule {
		params.ScheduledRevisit = req.ScheduledFor
	}
	if !req.AdminOverride || !actor.IsAdmin() {
		claimTo := actor.ID
		params.ClaimTo = &claimTo
	}

	gpsUnavailable := false
	if plan.RequiresProximity {
		result, err := s.verifyProximity(ctx, lead, req.GPS, actor)
		if err != nil {
			return transport.DispositionResponse{}, err
		}
		gpsUnavailable = result.FailedOpen
		if result.Sample != nil {
			params.GPSLat = &result.Sample.Position.Lat
			params.GPSLng = &result.Sample.Position.Lng
			params.GPSAccuracyM = &result.Sample.AccuracyM
			params.DistanceFromAddrM = result.DistanceM
		}
	}

	updated, entry, revisitID, err := s.repo.CommitDisposition(ctx, params)
	if err != nil {
		return transport.DispositionResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadDispositioned{
		BaseEvent:          events.NewBaseEvent(),
		LeadID:             updated.ID,
		Disposition:        entry.Disposition,
		UserID:             actor.ID,
		CountsAsDoorKnock:  entry.CountsAsDoorKnock,
		DistanceFromAddrM:  entry.DistanceFromAddrM,
		ScheduledRevisitAt: params.ScheduledRevisit,
	})

	if revisitID != uuid.Nil && s.scheduler != nil && params.ScheduledRevisit != nil {
		if err := s.scheduler.ScheduleRevisitReminder(ctx, updated.ID, revisitID, actor.ID, *params.ScheduledRevisit); err != nil {
			// The revisit record is committed; a reminder miss is log-worthy, not fatal.
			s.log.Error("failed to schedule revisit reminder", "leadId", updated.ID, "error", err)
		}
	}

	leadResp := transport.ToLeadResponse(updated)
	entryResp := transport.ToHistoryResponse([]repository.HistoryEntry{entry})[0]
	return transport.DispositionResponse{
		Lead:           &leadResp,
		Entry:          &entryResp,
		GPSUnavailable: gpsUnavailable,
	}, nil
}

func (s *Service) verifyProximity(ctx context.Context, lead repository.Lead, sample *transport.GPSSample, actor domain.Actor) (proximity.Result, error) {
	if lead.Latitude == nil || lead.Longitude == nil {
		// No stored coordinate to gate against; treat like an unavailable fix.
		return proximity.Result{FailedOpen: true}, nil
	}

	leadPos := geo.Point{Lat: *lead.Latitude, Lng: *lead.Longitude}

	var provided *proximity.Fix
	if sample != nil {
		provided = &proximity.Fix{
			Position:   geo.Point{Lat: sample.Lat, Lng: sample.Lng},
			AccuracyM:  sample.AccuracyM,
			RecordedAt: sample.RecordedAt,
		}
	}

	result, err := s.verifier.Verify(ctx, actor.ID, leadPos, provided)
	if err != nil {
		if apperr.Is(err, apperr.KindForbidden) {
			s.log.ProximityRejected(lead.ID.String(), actor.ID.String(), rejectedDistance(err))
		}
		return proximity.Result{}, err
	}
	return result, nil
}

func rejectedDistance(err error) float64 {
	appErr, ok := err.(*apperr.Error)
	if !ok {
		return 0
	}
	details, ok := appErr.Details.(map[string]float64)
	if !ok {
		return 0
	}
	return details["distanceFeet"] / geo.FeetPerMeter
}
