package registry

import (
	"fieldops_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler exposes the disposition catalog to UI pickers.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /api/v1/dispositions
func (h *Handler) List(c *gin.Context) {
	defs, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, defs)
}
