package transport

import (
	"time"

	"fieldops_backend/internal/territory/repository"
	"fieldops_backend/internal/territory/service"
	"fieldops_backend/platform/geo"

	"github.com/google/uuid"
)

// Request DTOs

// CapturePoint is one raw drag-gesture sample.
type CapturePoint struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

type CaptureRequest struct {
	Name   string         `json:"name" validate:"required,min=1,max=100"`
	Points []CapturePoint `json:"points" validate:"required,min=3,dive"`
}

type BulkAssignRequest struct {
	// Op is the mutation applied to each contained lead.
	Op string `json:"op" validate:"required,oneof=assign unclaim"`
	// AssigneeID is required for the assign op.
	AssigneeID uuid.UUID `json:"assigneeId,omitempty" validate:"required_if=Op assign"`
	// Async enqueues the reassignment instead of running it inline.
	Async bool `json:"async,omitempty"`
}

// Response DTOs

type TerritoryResponse struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Vertices  []CapturePoint `json:"vertices"`
	CreatedBy uuid.UUID      `json:"createdBy"`
	CreatedAt time.Time      `json:"createdAt"`
}

type ContainedLeadResponse struct {
	ID  uuid.UUID `json:"id"`
	Lat float64   `json:"lat"`
	Lng float64   `json:"lng"`
}

type BulkAssignResponse struct {
	Processed int  `json:"processed"`
	Failed    int  `json:"failed"`
	Enqueued  bool `json:"enqueued,omitempty"`
}

// Mappers

func ToPoints(points []CapturePoint) []geo.Point {
	out := make([]geo.Point, 0, len(points))
	for _, p := range points {
		out = append(out, geo.Point{Lat: p.Lat, Lng: p.Lng})
	}
	return out
}

func ToTerritoryResponse(t repository.Territory) TerritoryResponse {
	vertices := make([]CapturePoint, 0, len(t.Vertices))
	for _, v := range t.Vertices {
		vertices = append(vertices, CapturePoint{Lat: v.Lat, Lng: v.Lng})
	}
	return TerritoryResponse{
		ID:        t.ID,
		Name:      t.Name,
		Vertices:  vertices,
		CreatedBy: t.CreatedBy,
		CreatedAt: t.CreatedAt,
	}
}

func ToTerritoryResponses(territories []repository.Territory) []TerritoryResponse {
	out := make([]TerritoryResponse, 0, len(territories))
	for _, t := range territories {
		out = append(out, ToTerritoryResponse(t))
	}
	return out
}

func ToContainedLeads(leads []service.CandidateLead) []ContainedLeadResponse {
	out := make([]ContainedLeadResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, ContainedLeadResponse{ID: l.ID, Lat: l.Position.Lat, Lng: l.Position.Lng})
	}
	return out
}
