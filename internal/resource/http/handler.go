package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/reservation-backend/internal/auth"
	"github.com/nekogravitycat/reservation-backend/internal/pkg/request"
	"github.com/nekogravitycat/reservation-backend/internal/pkg/response"
	"github.com/nekogravitycat/reservation-backend/internal/resource"
)

type Handler struct {
	service resource.Service
}

func NewHandler(service resource.Service) *Handler {
	return &Handler{service: service}
}

func principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return p, ok
}

func (h *Handler) List(c *gin.Context) {
	var req ListResourcesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	filter := resource.Filter{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Page:           req.Page,
		PageSize:       req.PageSize,
		SortBy:         req.SortBy,
		SortOrder:      strings.ToUpper(req.SortOrder),
	}

	resources, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]ResourceResponse, len(resources))
	for i, r := range resources {
		items[i] = NewResponse(r)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	res, err := h.service.Create(c.Request.Context(), p, resource.CreateRequest{
		OrganizationID:   body.OrganizationID,
		Name:             body.Name,
		Description:      body.Description,
		MaxBookingHours:  body.MaxBookingHours,
		RequiresApproval: body.RequiresApproval,
		Availability:     body.Availability,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewResponse(res))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	res, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewResponse(res))
}

func (h *Handler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}
	var body UpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	res, err := h.service.Update(c.Request.Context(), p, uri.ID, resource.UpdateRequest{
		Name:             body.Name,
		Description:      body.Description,
		MaxBookingHours:  body.MaxBookingHours,
		RequiresApproval: body.RequiresApproval,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewResponse(res))
}

func (h *Handler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), p, uri.ID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) SetAvailability(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}
	var body SetAvailabilityRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	res, err := h.service.SetAvailability(c.Request.Context(), p, uri.ID, body.Windows)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewResponse(res))
}

func (h *Handler) ClearAvailability(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	res, err := h.service.ClearAvailability(c.Request.Context(), p, uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewResponse(res))
}

func (h *Handler) ListMaintenance(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}
	var q ListMaintenanceRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	periods, err := h.service.ListMaintenance(c.Request.Context(), uri.ID, q.From, q.To)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]MaintenanceResponse, len(periods))
	for i, m := range periods {
		items[i] = NewMaintenanceResponse(m)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) AddMaintenance(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}
	var body AddMaintenanceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	m, err := h.service.AddMaintenance(c.Request.Context(), p, uri.ID, resource.MaintenanceRequest{
		Start:  body.StartTime,
		End:    body.EndTime,
		Reason: body.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewMaintenanceResponse(*m))
}

func (h *Handler) RemoveMaintenance(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var uri MaintenanceURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	if err := h.service.RemoveMaintenance(c.Request.Context(), p, uri.ID, uri.MaintenanceID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
