// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"fieldops_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Lifecycle Events
// =============================================================================

// LeadClaimed is published when a rep takes ownership of a lead.
type LeadClaimed struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	UserID uuid.UUID `json:"userId"`
}

func (e LeadClaimed) EventName() string { return "leads.lead.claimed" }

// LeadUnclaimed is published when a lead's ownership is released.
type LeadUnclaimed struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	ActorID uuid.UUID `json:"actorId"`
}

func (e LeadUnclaimed) EventName() string { return "leads.lead.unclaimed" }

// LeadDispositioned is published after a disposition commits, carrying the
// door-knock classification captured at commit time.
type LeadDispositioned struct {
	BaseEvent
	LeadID             uuid.UUID  `json:"leadId"`
	Disposition        string     `json:"disposition"`
	UserID             uuid.UUID  `json:"userId"`
	CountsAsDoorKnock  bool       `json:"countsAsDoorKnock"`
	DistanceFromAddrM  *float64   `json:"distanceFromAddressMeters,omitempty"`
	ScheduledRevisitAt *time.Time `json:"scheduledRevisitAt,omitempty"`
}

func (e LeadDispositioned) EventName() string { return "leads.lead.dispositioned" }

// LeadAssigned is published when a manager directs a lead to a rep.
type LeadAssigned struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	AssigneeID uuid.UUID `json:"assigneeId"`
	AssignerID uuid.UUID `json:"assignerId"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// RevisitDue is published when a go-back's scheduled date arrives.
type RevisitDue struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	RevisitID uuid.UUID `json:"revisitId"`
	UserID    uuid.UUID `json:"userId"`
}

func (e RevisitDue) EventName() string { return "leads.revisit.due" }

// =============================================================================
// Territory Events
// =============================================================================

// TerritoryAssigned is published after a drawn territory is persisted and its
// bulk reassignment completes.
type TerritoryAssigned struct {
	BaseEvent
	TerritoryID uuid.UUID `json:"territoryId"`
	AssigneeID  uuid.UUID `json:"assigneeId"`
	Processed   int       `json:"processed"`
	Failed      int       `json:"failed"`
}

func (e TerritoryAssigned) EventName() string { return "territory.assigned" }

// BulkProgress reports batch progress of a long-running multi-item operation.
// Subscribers typically forward this to a progress-display collaborator.
type BulkProgress struct {
	BaseEvent
	Operation string `json:"operation"`
	Current   int    `json:"current"`
	Total     int    `json:"total"`
	Failed    int    `json:"failed"`
}

func (e BulkProgress) EventName() string { return "territory.bulk.progress" }

// =============================================================================
// Route Events
// =============================================================================

// RouteBuilt is published when a route is produced for a rep.
type RouteBuilt struct {
	BaseEvent
	UserID        uuid.UUID `json:"userId"`
	Stops         int       `json:"stops"`
	TotalMeters   float64   `json:"totalMeters"`
	Refined       bool      `json:"refined"`
	RefineFailure string    `json:"refineFailure,omitempty"`
}

func (e RouteBuilt) EventName() string { return "routes.route.built" }
