package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/reservation-backend/internal/auth"
	"github.com/nekogravitycat/reservation-backend/internal/organization"
	"github.com/nekogravitycat/reservation-backend/internal/pkg/request"
	"github.com/nekogravitycat/reservation-backend/internal/pkg/response"
)

type Handler struct {
	service organization.Service
}

func NewHandler(service organization.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	var req ListOrganizationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	orgs, total, err := h.service.List(c.Request.Context(), organization.Filter{Page: req.Page, PageSize: req.PageSize})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]OrganizationResponse, len(orgs))
	for i, o := range orgs {
		items[i] = NewOrganizationResponse(o)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid organization id", err)
		return
	}

	org, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewOrganizationResponse(org))
}

func (h *Handler) Create(c *gin.Context) {
	p, _ := auth.GetPrincipal(c)

	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	org, err := h.service.Create(c.Request.Context(), p, req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewOrganizationResponse(org))
}

func (h *Handler) Delete(c *gin.Context) {
	p, _ := auth.GetPrincipal(c)

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid organization id", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), p, uri.ID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListMembers(c *gin.Context) {
	p, _ := auth.GetPrincipal(c)

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid organization id", err)
		return
	}
	var req ListOrganizationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	members, total, err := h.service.ListMembers(c.Request.Context(), p, uri.ID, organization.Filter{Page: req.Page, PageSize: req.PageSize})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]MemberResponse, len(members))
	for i, m := range members {
		items[i] = NewMemberResponse(m)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) AddMember(c *gin.Context) {
	p, _ := auth.GetPrincipal(c)

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid organization id", err)
		return
	}
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	if err := h.service.AddMember(c.Request.Context(), p, uri.ID, req.UserID, organization.Role(req.Role)); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *Handler) RemoveMember(c *gin.Context) {
	p, _ := auth.GetPrincipal(c)

	var uri MemberURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid path parameters", err)
		return
	}

	if err := h.service.RemoveMember(c.Request.Context(), p, uri.ID, uri.UserID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
