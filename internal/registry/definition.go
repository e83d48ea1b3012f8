// Package registry provides the disposition registry: the catalog of lead
// outcome statuses with their display metadata and behavioral flags. The
// lifecycle core treats it as a read-only collaborator.
package registry

// Built-in statuses that exist regardless of registry contents.
const (
	StatusUnclaimed = "unclaimed"
	StatusClaimed   = "claimed"
	StatusGoBack    = "go-back"
)

// SpecialSchedulingManager marks a status whose selection must be routed to
// the external scheduling collaborator instead of committing a terminal status.
const SpecialSchedulingManager = "scheduling-manager"

// Definition describes a single disposition status.
type Definition struct {
	ID                string `json:"id" yaml:"id"`
	Name              string `json:"name" yaml:"name"`
	Color             string `json:"color" yaml:"color"`
	Icon              string `json:"icon" yaml:"icon"`
	CountsAsDoorKnock bool   `json:"countsAsDoorKnock" yaml:"countsAsDoorKnock"`
	SpecialBehavior   string `json:"specialBehavior,omitempty" yaml:"specialBehavior,omitempty"`
	SortOrder         int    `json:"sortOrder" yaml:"sortOrder"`
}

// RequiresScheduler reports whether selecting this status must be routed to
// the external scheduling collaborator.
func (d Definition) RequiresScheduler() bool {
	return d.SpecialBehavior == SpecialSchedulingManager
}
