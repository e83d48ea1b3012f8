package handler

import (
	"context"
	"net/http"

	"fieldops_backend/internal/territory/service"
	"fieldops_backend/internal/territory/transport"
	"fieldops_backend/platform/httpkit"
	"fieldops_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BulkEnqueuer hands a reassignment off to the background worker. Nil when
// the task queue is disabled; the handler then runs the reassignment inline.
type BulkEnqueuer interface {
	EnqueueTerritoryBulkAssign(ctx context.Context, territoryID uuid.UUID, op string, assigneeID uuid.UUID) error
}

type Handler struct {
	svc      *service.Service
	enqueuer BulkEnqueuer
	validate *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

func New(svc *service.Service, enqueuer BulkEnqueuer, validate *validator.Validator) *Handler {
	return &Handler{svc: svc, enqueuer: enqueuer, validate: validate}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Capture)
	rg.GET("/:id", h.GetByID)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id/leads", h.LeadsInside)
	rg.POST("/:id/assign", h.BulkAssign)
}

func (h *Handler) Capture(c *gin.Context) {
	var req transport.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	territory, err := h.svc.Capture(c.Request.Context(), req.Name, transport.ToPoints(req.Points), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToTerritoryResponse(territory))
}

func (h *Handler) List(c *gin.Context) {
	territories, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToTerritoryResponses(territories))
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	territory, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToTerritoryResponse(territory))
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) LeadsInside(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	leads, err := h.svc.LeadsInside(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToContainedLeads(leads))
}

func (h *Handler) BulkAssign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.BulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if req.Async && h.enqueuer != nil {
		// Validate existence before enqueueing so the caller gets a 404 now,
		// not a silently dropped task later.
		if _, err := h.svc.GetByID(c.Request.Context(), id); httpkit.HandleError(c, err) {
			return
		}
		if err := h.enqueuer.EnqueueTerritoryBulkAssign(c.Request.Context(), id, req.Op, req.AssigneeID); httpkit.HandleError(c, err) {
			return
		}
		httpkit.JSON(c, http.StatusAccepted, transport.BulkAssignResponse{Enqueued: true})
		return
	}

	result, err := h.svc.BulkReassign(c.Request.Context(), id, service.BulkOp(req.Op), req.AssigneeID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.BulkAssignResponse{Processed: result.Processed, Failed: result.Failed})
}
