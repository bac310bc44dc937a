package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/reservation-backend/internal/auth"
	"github.com/nekogravitycat/reservation-backend/internal/booking"
	"github.com/nekogravitycat/reservation-backend/internal/pkg/request"
	"github.com/nekogravitycat/reservation-backend/internal/pkg/response"
	"github.com/nekogravitycat/reservation-backend/internal/timeslot"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
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
	p, ok := principal(c)
	if !ok {
		return
	}

	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	filter := booking.Filter{
		UserID:          req.UserID,
		ResourceID:      req.ResourceID,
		OrganizationID:  req.OrganizationID,
		Status:          booking.Status(req.Status),
		From:            req.From,
		To:              req.To,
		IncludeArchived: req.IncludeArchived,
		Page:            req.Page,
		PageSize:        req.PageSize,
		SortBy:          req.SortBy,
		SortOrder:       strings.ToUpper(req.SortOrder),
	}

	bookings, total, err := h.service.List(c.Request.Context(), p, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	b, err := h.service.Create(c.Request.Context(), p, booking.CreateRequest{
		ResourceID: body.ResourceID,
		Purpose:    body.Purpose,
		StartTime:  body.StartTime,
		EndTime:    body.EndTime,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), p, uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

type decisionFunc func(h *Handler, c *gin.Context, p auth.Principal, id, remarks string) (*booking.Booking, error)

// decide binds the id and remark shared by approve, reject and cancel.
func (h *Handler) decide(fn decisionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}

		var uri request.ByIDRequest
		if err := c.ShouldBindUri(&uri); err != nil {
			response.BadRequest(c, "invalid request", err)
			return
		}
		var body DecisionRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				response.BadRequest(c, "invalid request body", err)
				return
			}
		}

		b, err := fn(h, c, p, uri.ID, body.Remarks)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, NewBookingResponse(b))
	}
}

func approve(h *Handler, c *gin.Context, p auth.Principal, id, remarks string) (*booking.Booking, error) {
	return h.service.Approve(c.Request.Context(), p, id, remarks)
}

func reject(h *Handler, c *gin.Context, p auth.Principal, id, remarks string) (*booking.Booking, error) {
	return h.service.Reject(c.Request.Context(), p, id, remarks)
}

func cancel(h *Handler, c *gin.Context, p auth.Principal, id, remarks string) (*booking.Booking, error) {
	return h.service.Cancel(c.Request.Context(), p, id, remarks)
}

func parseFrom(s string) (timeslot.Key, error) {
	if s == "" {
		return timeslot.Key{}, nil
	}
	return timeslot.ParseDate(s)
}

func (h *Handler) Grid(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}
	var q GridRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	from, err := parseFrom(q.From)
	if err != nil {
		response.BadRequest(c, "invalid from date", err)
		return
	}

	g, err := h.service.Grid(c.Request.Context(), p, uri.ID, from, q.Days)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewGridResponse(uri.ID, g, h.service.Boundary()))
}

// Select replays clicks against the current grid. It is advisory and never books anything.
func (h *Handler) Select(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}
	var body SelectionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	from, err := parseFrom(body.From)
	if err != nil {
		response.BadRequest(c, "invalid from date", err)
		return
	}

	clicks := make([]timeslot.Key, len(body.Clicks))
	for i, raw := range body.Clicks {
		k, err := timeslot.ParseKey(raw)
		if err != nil {
			response.BadRequest(c, "invalid slot key", err)
			return
		}
		clicks[i] = k
	}

	s, err := h.service.Select(c.Request.Context(), p, uri.ID, from, body.Days, clicks)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewSelectionResponse(s, h.service.Boundary()))
}
