package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateLeadRequest struct {
	FirstName string   `json:"firstName" validate:"required,min=1,max=100"`
	LastName  string   `json:"lastName" validate:"required,min=1,max=100"`
	Phone     string   `json:"phone" validate:"required,min=5,max=20"`
	Email     string   `json:"email,omitempty" validate:"omitempty,email"`
	Street    string   `json:"street" validate:"required,min=1,max=200"`
	City      string   `json:"city" validate:"required,min=1,max=100"`
	State     string   `json:"state" validate:"required,min=2,max=50"`
	Zip       string   `json:"zip" validate:"required,min=3,max=20"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
}

// GPSSample is a client-captured position accompanying a door knock.
type GPSSample struct {
	Lat        float64   `json:"lat" validate:"min=-90,max=90"`
	Lng        float64   `json:"lng" validate:"min=-180,max=180"`
	AccuracyM  float64   `json:"accuracyMeters" validate:"min=0"`
	RecordedAt time.Time `json:"recordedAt"`
}

type DispositionRequest struct {
	Status       string     `json:"status" validate:"required,min=1,max=60"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	GPS          *GPSSample `json:"gps,omitempty"`
	// AdminOverride leaves claimed_by untouched. Only honored for admins.
	AdminOverride bool `json:"adminOverride,omitempty"`
}

type AssignRequest struct {
	// AssigneeID null clears the directed assignment.
	AssigneeID *uuid.UUID `json:"assigneeId"`
}

// Response DTOs

type LeadResponse struct {
	ID              uuid.UUID  `json:"id"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Phone           string     `json:"phone"`
	Email           *string    `json:"email,omitempty"`
	Street          string     `json:"street"`
	City            string     `json:"city"`
	State           string     `json:"state"`
	Zip             string     `json:"zip"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	Status          string     `json:"status"`
	ClaimedBy       *uuid.UUID `json:"claimedBy,omitempty"`
	AssignedTo      *uuid.UUID `json:"assignedTo,omitempty"`
	DispositionedAt *time.Time `json:"dispositionedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type HistoryEntryResponse struct {
	ID                uuid.UUID `json:"id"`
	Disposition       string    `json:"disposition"`
	CountsAsDoorKnock bool      `json:"countsAsDoorKnock"`
	UserID            uuid.UUID `json:"userId"`
	UserName          string    `json:"userName"`
	GPSLat            *float64  `json:"gpsLat,omitempty"`
	GPSLng            *float64  `json:"gpsLng,omitempty"`
	GPSAccuracyM      *float64  `json:"gpsAccuracyMeters,omitempty"`
	DistanceFromAddrM *float64  `json:"distanceFromAddressMeters,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// DispositionResponse reports a commit, or signals that the caller must route
// to the external scheduling collaborator instead.
type DispositionResponse struct {
	RequiresScheduler bool                  `json:"requiresScheduler"`
	Lead              *LeadResponse         `json:"lead,omitempty"`
	Entry             *HistoryEntryResponse `json:"entry,omitempty"`
	// GPSUnavailable is true when the commit proceeded without a GPS sample
	// because no fix could be acquired in time.
	GPSUnavailable bool `json:"gpsUnavailable,omitempty"`
}
