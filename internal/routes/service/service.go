// Package service builds per-rep door-knock routes: greedy nearest-neighbor
// ordering with optional refinement through an external routing service.
package service

import (
	"context"

	"fieldops_backend/internal/events"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/geo"
	"fieldops_backend/platform/logger"

	"github.com/google/uuid"
)

// MatchEpsilonDegrees bounds how far (in degrees, per axis) a refined stop may
// sit from a local lead position and still be matched to it.
const MatchEpsilonDegrees = 0.001

// Stop is one routable lead with its geocoded position.
type Stop struct {
	LeadID   uuid.UUID
	Name     string
	Address  string
	Position geo.Point
	// LegDistanceMeters and LegDurationMinutes describe the leg arriving at
	// this stop. They come from the external service and are only present on
	// a refined route.
	LegDistanceMeters  *float64
	LegDurationMinutes *float64
}

// Origin is where a route starts: a live GPS fix or a resolved explicit
// address. EndAddress, when set, terminates the route there; otherwise the
// route loops back to the start.
type Origin struct {
	Position   geo.Point
	Address    string
	EndAddress string
}

// LeadSource supplies the routable lead subset for a user: leads the user has
// claimed or been assigned, carrying coordinates. Implemented by an adapter
// over the leads context.
type LeadSource interface {
	RoutableLeads(ctx context.Context, userID uuid.UUID) ([]Stop, error)
}

// RefinedStop is one stop in the external optimizer's order: a bare
// coordinate plus the metrics of the leg arriving at it. The service does not
// echo lead identifiers.
type RefinedStop struct {
	Position        geo.Point
	DistanceMeters  *float64
	DurationMinutes *float64
}

// Refinement is the external optimizer's answer.
type Refinement struct {
	DistanceMiles   float64
	DurationMinutes float64
	Stops           []RefinedStop
}

// Refiner submits a locally ordered route for external optimization.
// Nil disables refinement.
type Refiner interface {
	Refine(ctx context.Context, origin Origin, stops []Stop) (Refinement, error)
}

// Route is the built route. When Refined is false and RefineFailure is set,
// the order is the local nearest-neighbor fallback.
type Route struct {
	Stops         []Stop
	TotalMeters   float64
	Refined       bool
	RefineFailure string
	// DistanceMiles and DurationMinutes come from the external service and
	// are only present on a refined route.
	DistanceMiles   *float64
	DurationMinutes *float64
}

type Service struct {
	source  LeadSource
	refiner Refiner
	bus     events.Bus
	log     *logger.Logger
}

func New(source LeadSource, refiner Refiner, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		source:  source,
		refiner: refiner,
		bus:     bus,
		log:     log,
	}
}

// Build produces a route for the user from the given origin. The local
// nearest-neighbor order is always computed first; refinement then reorders
// it when the external service is available, and is reported but never fatal
// when it is not.
func (s *Service) Build(ctx context.Context, userID uuid.UUID, origin Origin) (Route, error) {
	stops, err := s.source.RoutableLeads(ctx, userID)
	if err != nil {
		return Route{}, err
	}
	if len(stops) == 0 {
		return Route{}, apperr.Validation("no eligible leads to route")
	}

	start := origin.Position
	ordered := nearestNeighbor(start, stops)
	route := Route{
		Stops:       ordered,
		TotalMeters: totalDistance(start, ordered),
	}

	if s.refiner != nil {
		refinement, err := s.refiner.Refine(ctx, origin, ordered)
		if err != nil {
			route.RefineFailure = err.Error()
			s.log.Warn("route refinement failed, using local order", "userId", userID, "error", err)
		} else {
			route.Stops = applyRefinement(ordered, refinement.Stops)
			route.TotalMeters = totalDistance(start, route.Stops)
			route.Refined = true
			route.DistanceMiles = &refinement.DistanceMiles
			route.DurationMinutes = &refinement.DurationMinutes
		}
	}

	s.bus.Publish(ctx, events.RouteBuilt{
		BaseEvent:     events.NewBaseEvent(),
		UserID:        userID,
		Stops:         len(route.Stops),
		TotalMeters:   route.TotalMeters,
		Refined:       route.Refined,
		RefineFailure: route.RefineFailure,
	})

	return route, nil
}

// nearestNeighbor orders stops greedily: from the current position, always
// visit the closest unvisited stop next. The result is a permutation of the
// input.
func nearestNeighbor(start geo.Point, stops []Stop) []Stop {
	remaining := make([]Stop, len(stops))
	copy(remaining, stops)

	ordered := make([]Stop, 0, len(stops))
	current := start
	for len(remaining) > 0 {
		best := 0
		bestDist := geo.Haversine(current, remaining[0].Position)
		for i := 1; i < len(remaining); i++ {
			if d := geo.Haversine(current, remaining[i].Position); d < bestDist {
				best, bestDist = i, d
			}
		}
		next := remaining[best]
		ordered = append(ordered, next)
		current = next.Position
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return ordered
}

func totalDistance(start geo.Point, stops []Stop) float64 {
	total := 0.0
	current := start
	for _, s := range stops {
		total += geo.Haversine(current, s.Position)
		current = s.Position
	}
	return total
}

// applyRefinement reorders the local stops to the refined coordinate order.
// Each refined coordinate matches the nearest unused local stop within the
// epsilon box and takes on that leg's metrics; a refined stop with no match
// keeps the local stop that held that slot. Unmatched local stops are
// appended in local order so the result stays a permutation of the input.
func applyRefinement(local []Stop, refined []RefinedStop) []Stop {
	used := make([]bool, len(local))
	out := make([]Stop, 0, len(local))

	for slot, r := range refined {
		if len(out) == len(local) {
			break
		}
		if idx, ok := matchStop(local, used, r.Position); ok {
			used[idx] = true
			stop := local[idx]
			stop.LegDistanceMeters = r.DistanceMeters
			stop.LegDurationMinutes = r.DurationMinutes
			out = append(out, stop)
			continue
		}
		// No lead near the refined coordinate. Fall back to the local stop
		// occupying the same slot, if it is still unused. Its leg metrics
		// stay unset: the refined leg described a different coordinate.
		if slot < len(local) && !used[slot] {
			used[slot] = true
			out = append(out, local[slot])
		}
	}

	for i, stop := range local {
		if !used[i] {
			out = append(out, stop)
		}
	}
	return out
}

func matchStop(local []Stop, used []bool, p geo.Point) (int, bool) {
	best := -1
	bestDist := 0.0
	for i, stop := range local {
		if used[i] {
			continue
		}
		dLat := stop.Position.Lat - p.Lat
		dLng := stop.Position.Lng - p.Lng
		if dLat < -MatchEpsilonDegrees || dLat > MatchEpsilonDegrees ||
			dLng < -MatchEpsilonDegrees || dLng > MatchEpsilonDegrees {
			continue
		}
		d := dLat*dLat + dLng*dLng
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best != -1
}
