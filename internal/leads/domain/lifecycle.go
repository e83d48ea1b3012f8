// Package domain holds the pure lead lifecycle rules: who may claim, who may
// release, and what a disposition commit requires. No I/O, no framework types.
package domain

import (
	"time"

	"fieldops_backend/internal/registry"
	"fieldops_backend/platform/apperr"

	"github.com/google/uuid"
)

// Well-known roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSetter  = "setter"
	RoleSales   = "sales"
)

// Actor is the user performing a lifecycle operation.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role string
}

// IsAdmin reports whether the actor holds the administrative role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// GatedRoles is the set of roles subject to the proximity gate.
type GatedRoles map[string]struct{}

// NewGatedRoles builds the gated set from a role list. Admin is never gated,
// even if listed.
func NewGatedRoles(roles []string) GatedRoles {
	set := make(GatedRoles, len(roles))
	for _, r := range roles {
		if r == RoleAdmin {
			continue
		}
		set[r] = struct{}{}
	}
	return set
}

// Contains reports whether the role is proximity-gated.
func (g GatedRoles) Contains(role string) bool {
	_, ok := g[role]
	return ok
}

// CheckClaim enforces the single-claim invariant: a lead may be claimed when
// unowned or already owned by the same user.
func CheckClaim(claimedBy *uuid.UUID, userID uuid.UUID) error {
	if claimedBy == nil || *claimedBy == userID {
		return nil
	}
	return apperr.Conflict("lead is already claimed by another user")
}

// CheckUnclaim allows release by the current claimant or an administrative
// override. Unclaiming an unowned lead is a no-op level success.
func CheckUnclaim(claimedBy *uuid.UUID, actor Actor) error {
	if claimedBy == nil || *claimedBy == actor.ID || actor.IsAdmin() {
		return nil
	}
	return apperr.Forbidden("only the claimant or an admin can release this lead")
}

// CheckAssign allows administrative assignment, which bypasses the
// single-claim invariant to support manager-directed routing.
func CheckAssign(actor Actor) error {
	if actor.Role == RoleManager || actor.IsAdmin() {
		return nil
	}
	return apperr.Forbidden("only managers can assign leads")
}

// DispositionPlan describes what a requested disposition commit needs before
// it may proceed.
type DispositionPlan struct {
	// RequiresScheduler means no terminal status is committed; the caller must
	// route to the external scheduling collaborator.
	RequiresScheduler bool
	// RequiresProximity means the proximity gate must pass before commit.
	RequiresProximity bool
	// RequiresSchedule means a future revisit date must accompany the commit.
	RequiresSchedule bool
	// CountsAsDoorKnock is the registry flag captured for the history entry.
	CountsAsDoorKnock bool
}

// PlanDisposition derives the commit plan for a registry status and actor.
// The built-in claim/unclaim statuses have dedicated operations and are
// rejected here.
func PlanDisposition(def registry.Definition, actor Actor, gated GatedRoles) (DispositionPlan, error) {
	switch def.ID {
	case registry.StatusClaimed, registry.StatusUnclaimed:
		return DispositionPlan{}, apperr.Validation("use the claim/unclaim operations for built-in statuses")
	}

	plan := DispositionPlan{
		CountsAsDoorKnock: def.CountsAsDoorKnock,
	}

	if def.RequiresScheduler() {
		plan.RequiresScheduler = true
		return plan, nil
	}

	if def.ID == registry.StatusGoBack {
		plan.RequiresSchedule = true
	}

	if def.CountsAsDoorKnock && gated.Contains(actor.Role) && !actor.IsAdmin() {
		plan.RequiresProximity = true
	}

	return plan, nil
}

// ValidateSchedule enforces that a go-back revisit date lies in the future.
func ValidateSchedule(scheduledFor *time.Time, now time.Time) error {
	if scheduledFor == nil {
		return apperr.Validation("a scheduled revisit date is required for go-back")
	}
	if !scheduledFor.After(now) {
		return apperr.Validation("the scheduled revisit date must be in the future")
	}
	return nil
}
