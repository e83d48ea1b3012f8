package transport

import (
	"fieldops_backend/internal/routes/service"

	"github.com/google/uuid"
)

// Request DTOs

type BuildRouteRequest struct {
	// StartLat/StartLng are the rep's live GPS position. StartAddress is the
	// explicit-address alternative; coordinates win when both are present.
	StartLat     *float64 `json:"startLat,omitempty" validate:"omitempty,min=-90,max=90"`
	StartLng     *float64 `json:"startLng,omitempty" validate:"omitempty,min=-180,max=180"`
	StartAddress string   `json:"startAddress,omitempty" validate:"omitempty,min=3,max=200"`
	// EndAddress optionally terminates the route somewhere other than the start.
	EndAddress string `json:"endAddress,omitempty" validate:"omitempty,min=3,max=200"`
}

// Response DTOs

type RouteStopResponse struct {
	LeadID  uuid.UUID `json:"leadId"`
	Order   int       `json:"order"`
	Name    string    `json:"name,omitempty"`
	Address string    `json:"address,omitempty"`
	Lat     float64   `json:"lat"`
	Lng     float64   `json:"lng"`
	// DistanceMeters and DurationMinutes describe the leg arriving at this
	// stop; only present on a refined route.
	DistanceMeters  *float64 `json:"distanceMeters,omitempty"`
	DurationMinutes *float64 `json:"durationMinutes,omitempty"`
}

type RouteResponse struct {
	Stops           []RouteStopResponse `json:"stops"`
	TotalMeters     float64             `json:"totalMeters"`
	Refined         bool                `json:"refined"`
	RefineFailure   string              `json:"refineFailure,omitempty"`
	DistanceMiles   *float64            `json:"distanceMiles,omitempty"`
	DurationMinutes *float64            `json:"durationMinutes,omitempty"`
}

func ToRouteResponse(route service.Route) RouteResponse {
	stops := make([]RouteStopResponse, 0, len(route.Stops))
	for i, s := range route.Stops {
		stops = append(stops, RouteStopResponse{
			LeadID:          s.LeadID,
			Order:           i + 1,
			Name:            s.Name,
			Address:         s.Address,
			Lat:             s.Position.Lat,
			Lng:             s.Position.Lng,
			DistanceMeters:  s.LegDistanceMeters,
			DurationMinutes: s.LegDurationMinutes,
		})
	}
	return RouteResponse{
		Stops:           stops,
		TotalMeters:     route.TotalMeters,
		Refined:         route.Refined,
		RefineFailure:   route.RefineFailure,
		DistanceMiles:   route.DistanceMiles,
		DurationMinutes: route.DurationMinutes,
	}
}
