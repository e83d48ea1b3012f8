package tracking

import (
	"net/http"
	"time"

	"fieldops_backend/internal/leads/proximity"
	"fieldops_backend/platform/geo"
	"fieldops_backend/platform/httpkit"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// IngestRequest is one device-reported position sample.
type IngestRequest struct {
	Lat        float64   `json:"lat" validate:"min=-90,max=90"`
	Lng        float64   `json:"lng" validate:"min=-180,max=180"`
	AccuracyM  float64   `json:"accuracyMeters" validate:"min=0"`
	RecordedAt time.Time `json:"recordedAt"`
}

// FixResponse is the user's last-known position.
type FixResponse struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	AccuracyM  float64   `json:"accuracyMeters"`
	RecordedAt time.Time `json:"recordedAt"`
}

type Handler struct {
	store    *Store
	repo     *Repository
	validate *validator.Validator
	log      *logger.Logger
}

func NewHandler(store *Store, repo *Repository, validate *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{store: store, repo: repo, validate: validate, log: log}
}

// Ingest handles POST /api/v1/tracking/position.
func (h *Handler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	if req.RecordedAt.IsZero() {
		req.RecordedAt = time.Now()
	}

	identity := httpkit.MustGetIdentity(c)
	userID := identity.UserID()

	h.store.Record(userID, proximity.Fix{
		Position:   geo.Point{Lat: req.Lat, Lng: req.Lng},
		AccuracyM:  req.AccuracyM,
		RecordedAt: req.RecordedAt,
	})

	// Audit persistence is best-effort; the hot path must not fail on it.
	if h.repo != nil {
		if err := h.repo.Insert(c.Request.Context(), userID, req.Lat, req.Lng, req.AccuracyM, req.RecordedAt); err != nil {
			h.log.Error("failed to persist position sample", "userId", userID, "error", err)
		}
	}

	c.Status(http.StatusAccepted)
}

// Latest handles GET /api/v1/tracking/position.
func (h *Handler) Latest(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	fix, ok := h.store.Latest(identity.UserID())
	if !ok {
		httpkit.Error(c, http.StatusNotFound, "no position recorded", nil)
		return
	}

	httpkit.OK(c, FixResponse{
		Lat:        fix.Position.Lat,
		Lng:        fix.Position.Lng,
		AccuracyM:  fix.AccuracyM,
		RecordedAt: fix.RecordedAt,
	})
}
