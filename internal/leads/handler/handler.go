package handler

import (
	"net/http"

	"fieldops_backend/internal/leads/domain"
	"fieldops_backend/internal/leads/repository"
	"fieldops_backend/internal/leads/service"
	"fieldops_backend/internal/leads/transport"
	"fieldops_backend/platform/httpkit"
	"fieldops_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc      *service.Service
	validate *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

func New(svc *service.Service, validate *validator.Validator) *Handler {
	return &Handler{svc: svc, validate: validate}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/history", h.History)
	rg.POST("/:id/claim", h.Claim)
	rg.POST("/:id/unclaim", h.Unclaim)
	rg.POST("/:id/disposition", h.Disposition)
	rg.PUT("/:id/assign", h.Assign)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) List(c *gin.Context) {
	filter := repository.ListFilter{}
	if status := c.Query("status"); status != "" {
		filter.Status = status
	}
	if claimedBy := c.Query("claimedBy"); claimedBy != "" {
		id, err := uuid.Parse(claimedBy)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		filter.ClaimedBy = &id
	}

	leads, err := h.svc.List(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, leads)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	entries, err := h.svc.History(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, entries)
}

func (h *Handler) Claim(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.Claim(c.Request.Context(), id, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Unclaim(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.Unclaim(c.Request.Context(), id, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Disposition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.DispositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	resp, err := h.svc.Disposition(c.Request.Context(), id, req, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

func (h *Handler) Assign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.Assign(c.Request.Context(), id, req.AssigneeID, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

// rolePrecedence orders roles from most to least privileged for actors
// carrying more than one.
var rolePrecedence = []string{domain.RoleAdmin, domain.RoleManager, domain.RoleSales, domain.RoleSetter}

func actorFrom(c *gin.Context) domain.Actor {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		// MustGetIdentity already aborted with 401.
		return domain.Actor{}
	}

	role := ""
	for _, r := range rolePrecedence {
		if identity.HasRole(r) {
			role = r
			break
		}
	}
	if role == "" {
		roles := identity.Roles()
		if len(roles) > 0 {
			role = roles[0]
		}
	}

	return domain.Actor{
		ID:   identity.UserID(),
		Name: identity.Name(),
		Role: role,
	}
}
