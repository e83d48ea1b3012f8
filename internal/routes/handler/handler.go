package handler

import (
	"context"
	"net/http"

	"fieldops_backend/internal/routes/service"
	"fieldops_backend/internal/routes/transport"
	"fieldops_backend/platform/geo"
	"fieldops_backend/platform/httpkit"
	"fieldops_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// OriginResolver turns an explicit start address into a coordinate. Nil when
// no geocoder is wired; requests must then carry coordinates.
type OriginResolver interface {
	Resolve(ctx context.Context, address string) (geo.Point, error)
}

type Handler struct {
	svc      *service.Service
	resolver OriginResolver
	validate *validator.Validator
}

func New(svc *service.Service, resolver OriginResolver, validate *validator.Validator) *Handler {
	return &Handler{svc: svc, resolver: resolver, validate: validate}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/build", h.Build)
}

func (h *Handler) Build(c *gin.Context) {
	var req transport.BuildRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	origin := service.Origin{
		Address:    req.StartAddress,
		EndAddress: req.EndAddress,
	}
	switch {
	case req.StartLat != nil && req.StartLng != nil:
		origin.Position = geo.Point{Lat: *req.StartLat, Lng: *req.StartLng}
	case req.StartAddress != "":
		if h.resolver == nil {
			httpkit.Error(c, http.StatusBadRequest, "start coordinates required", nil)
			return
		}
		position, err := h.resolver.Resolve(c.Request.Context(), req.StartAddress)
		if httpkit.HandleError(c, err) {
			return
		}
		origin.Position = position
	default:
		httpkit.Error(c, http.StatusBadRequest, "start coordinates or startAddress required", nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	route, err := h.svc.Build(c.Request.Context(), identity.UserID(), origin)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToRouteResponse(route))
}
