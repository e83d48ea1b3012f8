package geocode

import (
	"net/http"

	"fieldops_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler exposes the address lookup endpoint.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Lookup handles GET /api/v1/geocode?q=...
func (h *Handler) Lookup(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "query 'q' is required (min 3 chars)", nil)
		return
	}

	results, err := h.svc.Search(c.Request.Context(), req.Query)
	if err != nil {
		httpkit.Error(c, http.StatusBadGateway, "geocoding service unavailable", nil)
		return
	}

	httpkit.OK(c, results)
}
