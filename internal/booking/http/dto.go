package http

import (
	"time"

	"github.com/nekogravitycat/reservation-backend/internal/availability"
	"github.com/nekogravitycat/reservation-backend/internal/booking"
	"github.com/nekogravitycat/reservation-backend/internal/pkg/request"
	"github.com/nekogravitycat/reservation-backend/internal/selection"
	"github.com/nekogravitycat/reservation-backend/internal/timeslot"
)

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	request.ListParams
	ResourceID      string     `form:"resource_id" binding:"omitempty,uuid"`
	OrganizationID  string     `form:"organization_id" binding:"omitempty,uuid"`
	Status          string     `form:"status" binding:"omitempty,oneof=pending approved rejected cancelled completed"`
	UserID          string     `form:"user_id" binding:"omitempty,uuid"`
	From            *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To              *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	IncludeArchived bool       `form:"include_archived"`
	SortBy          string     `form:"sort_by" binding:"omitempty,oneof=start_time end_time created_at status"`
}

// Validate performs custom validation for ListBookingsRequest.
func (r *ListBookingsRequest) Validate() error {
	if r.From != nil && r.To != nil && !r.From.Before(*r.To) {
		return booking.ErrInvalidTimeRange
	}
	return nil
}

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type BookingResponse struct {
	ID             string     `json:"id"`
	Resource       Tag        `json:"resource"`
	User           Tag        `json:"user"`
	OrganizationID string     `json:"organization_id"`
	Purpose        string     `json:"purpose"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        time.Time  `json:"end_time"`
	Status         string     `json:"status"`
	Remarks        string     `json:"remarks,omitempty"`
	DecidedBy      *string    `json:"decided_by,omitempty"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:             b.ID,
		Resource:       Tag{ID: b.ResourceID, Name: b.ResourceName},
		User:           Tag{ID: b.UserID, Name: b.UserName},
		OrganizationID: b.OrganizationID,
		Purpose:        b.Purpose,
		StartTime:      b.StartTime,
		EndTime:        b.EndTime,
		Status:         string(b.Status),
		Remarks:        b.Remarks,
		DecidedBy:      b.DecidedBy,
		DecidedAt:      b.DecidedAt,
		ArchivedAt:     b.ArchivedAt,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

type CreateBookingRequest struct {
	ResourceID string    `json:"resource_id" binding:"required,uuid"`
	Purpose    string    `json:"purpose" binding:"max=500"`
	StartTime  time.Time `json:"start_time" binding:"required"`
	EndTime    time.Time `json:"end_time" binding:"required"`
}

// DecisionRequest carries the optional or mandatory remark of a lifecycle action.
type DecisionRequest struct {
	Remarks string `json:"remarks" binding:"max=1000"`
}

// GridRequest selects the grid window. From is a display-zone date.
type GridRequest struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	Days int    `form:"days" binding:"omitempty,min=1"`
}

type SelectionRequest struct {
	From   string   `json:"from" binding:"omitempty,datetime=2006-01-02"`
	Days   int      `json:"days" binding:"omitempty,min=1"`
	Clicks []string `json:"clicks" binding:"required,max=200"`
}

type OccupantResponse struct {
	BookingID   string `json:"booking_id"`
	RequesterID string `json:"requester_id"`
	Purpose     string `json:"purpose,omitempty"`
}

type CellResponse struct {
	Key       timeslot.Key       `json:"key"`
	StartTime time.Time          `json:"start_time"`
	State     availability.State `json:"state"`
	Booking   *OccupantResponse  `json:"booking,omitempty"`
}

type DayResponse struct {
	Date    string         `json:"date"`
	Weekday string         `json:"weekday"`
	Cells   []CellResponse `json:"cells"`
}

type GridResponse struct {
	ResourceID string        `json:"resource_id"`
	Configured bool          `json:"availability_configured"`
	Timezone   string        `json:"timezone"`
	From       string        `json:"from"`
	DayCount   int           `json:"day_count"`
	MinHour    int           `json:"min_hour"`
	MaxHour    int           `json:"max_hour"`
	Days       []DayResponse `json:"days"`
}

func NewGridResponse(resourceID string, g *availability.Grid, b timeslot.Boundary) GridResponse {
	resp := GridResponse{
		ResourceID: resourceID,
		Configured: g.Configured,
		Timezone:   b.Location().String(),
		From:       g.From.DateString(),
		DayCount:   g.Days,
		MinHour:    g.MinHour,
		MaxHour:    g.MaxHour,
		Days:       []DayResponse{},
	}
	if !g.Configured {
		return resp
	}

	for d := range g.Days {
		day := g.From.AddDays(d)
		row := g.Row(d)
		cells := make([]CellResponse, len(row))
		for i, c := range row {
			cells[i] = CellResponse{
				Key:       c.Key,
				StartTime: b.ToAbsolute(c.Key),
				State:     c.State,
			}
			if c.Occupant != nil {
				cells[i].Booking = &OccupantResponse{
					BookingID:   c.Occupant.BookingID,
					RequesterID: c.Occupant.RequesterID,
					Purpose:     c.Occupant.Purpose,
				}
			}
		}
		resp.Days = append(resp.Days, DayResponse{
			Date:    day.DateString(),
			Weekday: availability.WeekdayOf(day).String(),
			Cells:   cells,
		})
	}
	return resp
}

type SelectionResponse struct {
	Phase         selection.Phase `json:"phase"`
	Start         *timeslot.Key   `json:"start,omitempty"`
	End           *timeslot.Key   `json:"end,omitempty"`
	Slots         []timeslot.Key  `json:"slots"`
	DurationHours int             `json:"duration_hours"`
	StartTime     *time.Time      `json:"start_time,omitempty"`
	EndTime       *time.Time      `json:"end_time,omitempty"`
}

func NewSelectionResponse(s *selection.Selector, b timeslot.Boundary) SelectionResponse {
	resp := SelectionResponse{
		Phase:         s.Phase(),
		Slots:         s.Selected(),
		DurationHours: s.Duration(),
	}
	if resp.Slots == nil {
		resp.Slots = []timeslot.Key{}
	}
	if start, end, ok := s.Range(); ok {
		resp.Start, resp.End = &start, &end
	}
	if start, end, ok := s.Window(b); ok {
		resp.StartTime, resp.EndTime = &start, &end
	}
	return resp
}
