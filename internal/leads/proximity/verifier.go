// Package proximity implements the GPS distance gate for door-knock
// dispositions.
package proximity

import (
	"context"
	"fmt"
	"math"
	"time"

	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/geo"
	"fieldops_backend/platform/logger"

	"github.com/google/uuid"
)

// Fix is a single GPS sample.
type Fix struct {
	Position   geo.Point `json:"position"`
	AccuracyM  float64   `json:"accuracyMeters"`
	RecordedAt time.Time `json:"recordedAt"`
}

// FixSource produces the user's current position. The tracking module
// implements this over its live position stream; acquisition blocks until a
// fix arrives or the context expires.
type FixSource interface {
	CurrentFix(ctx context.Context, userID uuid.UUID) (Fix, error)
}

// Result describes a passed (or failed-open) verification. Its fields are
// attached to the committed history entry for audit.
type Result struct {
	// Sample is the GPS fix used, nil when verification failed open.
	Sample *Fix
	// DistanceM is the great-circle distance from the lead's address, nil
	// when verification failed open.
	DistanceM *float64
	// FailedOpen is true when no fix could be acquired in time and the
	// disposition proceeds without a GPS sample.
	FailedOpen bool
}

// Verifier gates door-knock dispositions on physical presence.
type Verifier struct {
	radiusM        float64
	acquireTimeout time.Duration
	source         FixSource
	log            *logger.Logger
}

// New creates a verifier. radiusM defaults to 50 and acquireTimeout to 5s
// when non-positive.
func New(radiusM float64, acquireTimeout time.Duration, source FixSource, log *logger.Logger) *Verifier {
	if radiusM <= 0 {
		radiusM = 50
	}
	if acquireTimeout <= 0 {
		acquireTimeout = 5 * time.Second
	}
	return &Verifier{
		radiusM:        radiusM,
		acquireTimeout: acquireTimeout,
		source:         source,
		log:            log,
	}
}

// Verify checks that the user stands within the radius of the lead's stored
// coordinate. A caller-provided fix is preferred; otherwise one is acquired
// from the source, bounded by the acquire timeout. Acquisition failure fails
// open: indoor knocking without signal must not block the rep.
func (v *Verifier) Verify(ctx context.Context, userID uuid.UUID, leadPos geo.Point, provided *Fix) (Result, error) {
	fix := provided
	if fix == nil {
		acquired, err := v.acquire(ctx, userID)
		if err != nil {
			if v.log != nil {
				v.log.Warn("gps acquisition failed, proceeding without sample", "userId", userID, "error", err)
			}
			return Result{FailedOpen: true}, nil
		}
		fix = &acquired
	}

	distance := geo.Haversine(fix.Position, leadPos)
	if distance > v.radiusM {
		feet := math.Round(geo.MetersToFeet(distance))
		return Result{}, apperr.Forbidden(
			fmt.Sprintf("too far from the lead address: %.0f ft away (limit %.0f ft)", feet, math.Round(geo.MetersToFeet(v.radiusM))),
		).WithDetails(map[string]float64{"distanceFeet": feet})
	}

	return Result{Sample: fix, DistanceM: &distance}, nil
}

func (v *Verifier) acquire(ctx context.Context, userID uuid.UUID) (Fix, error) {
	if v.source == nil {
		return Fix{}, fmt.Errorf("no fix source configured")
	}

	acquireCtx, cancel := context.WithTimeout(ctx, v.acquireTimeout)
	defer cancel()

	return v.source.CurrentFix(acquireCtx, userID)
}
