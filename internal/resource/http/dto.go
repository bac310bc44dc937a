package http

import (
	"time"

	"github.com/nekogravitycat/reservation-backend/internal/availability"
	"github.com/nekogravitycat/reservation-backend/internal/pkg/request"
	"github.com/nekogravitycat/reservation-backend/internal/resource"
)

type OrganizationTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ResourceResponse struct {
	ID               string                `json:"id"`
	Organization     OrganizationTag       `json:"organization"`
	Name             string                `json:"name"`
	Description      string                `json:"description"`
	MaxBookingHours  int                   `json:"max_booking_hours"`
	RequiresApproval bool                  `json:"requires_approval"`
	Configured       bool                  `json:"availability_configured"`
	Availability     []availability.Window `json:"availability"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

func NewResponse(r *resource.Resource) ResourceResponse {
	windows := r.Availability
	if windows == nil {
		windows = []availability.Window{}
	}
	return ResourceResponse{
		ID:               r.ID,
		Organization:     OrganizationTag{ID: r.OrganizationID, Name: r.OrganizationName},
		Name:             r.Name,
		Description:      r.Description,
		MaxBookingHours:  r.MaxBookingHours,
		RequiresApproval: r.RequiresApproval,
		Configured:       r.Availability != nil,
		Availability:     windows,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type ListResourcesRequest struct {
	request.ListParams
	OrganizationID string `form:"organization_id" binding:"omitempty,uuid"`
	Name           string `form:"name" binding:"omitempty,max=100"`
	SortBy         string `form:"sort_by" binding:"omitempty,oneof=name created_at max_booking_hours"`
}

type CreateRequest struct {
	OrganizationID   string                `json:"organization_id" binding:"required,uuid"`
	Name             string                `json:"name" binding:"required,max=100"`
	Description      string                `json:"description" binding:"max=2000"`
	MaxBookingHours  int                   `json:"max_booking_hours" binding:"required,min=1,max=720"`
	RequiresApproval bool                  `json:"requires_approval"`
	Availability     []availability.Window `json:"availability"`
}

type UpdateRequest struct {
	Name             *string `json:"name" binding:"omitempty,max=100"`
	Description      *string `json:"description" binding:"omitempty,max=2000"`
	MaxBookingHours  *int    `json:"max_booking_hours" binding:"omitempty,min=1,max=720"`
	RequiresApproval *bool   `json:"requires_approval"`
}

type SetAvailabilityRequest struct {
	Windows []availability.Window `json:"windows"`
}

type MaintenanceURI struct {
	ID            string `uri:"id" binding:"required,uuid"`
	MaintenanceID string `uri:"maintenanceId" binding:"required,uuid"`
}

type AddMaintenanceRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	Reason    string    `json:"reason" binding:"max=500"`
}

type ListMaintenanceRequest struct {
	From *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To   *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

type MaintenanceResponse struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func NewMaintenanceResponse(m availability.MaintenancePeriod) MaintenanceResponse {
	return MaintenanceResponse{
		ID:        m.ID,
		StartTime: m.Start,
		EndTime:   m.End,
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt,
	}
}
