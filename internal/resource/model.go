package resource

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/reservation-backend/internal/availability"
	"github.com/nekogravitycat/reservation-backend/internal/pkg/apperror"
)

var (
	ErrNotFound            = apperror.New(http.StatusNotFound, apperror.KindNotFound, "resource not found")
	ErrMaintenanceNotFound = apperror.New(http.StatusNotFound, apperror.KindNotFound, "maintenance period not found")
	ErrEmptyName           = apperror.New(http.StatusBadRequest, apperror.KindValidation, "name cannot be empty")
	ErrInvalidMaxDuration  = apperror.New(http.StatusBadRequest, apperror.KindValidation, "max booking hours must be positive")
	ErrInvalidOrganization = apperror.New(http.StatusBadRequest, apperror.KindValidation, "invalid organization_id")
	ErrInUse               = apperror.New(http.StatusConflict, apperror.KindConflict, "resource still has bookings")
	ErrPermissionDenied    = apperror.New(http.StatusForbidden, apperror.KindAuthorization, "forbidden: only organization admins can manage resources")
)

// Resource is a bookable unit such as a lab instrument, a server or a room.
type Resource struct {
	ID               string
	OrganizationID   string
	OrganizationName string
	Name             string
	Description      string
	MaxBookingHours  int
	RequiresApproval bool
	// Availability is nil until weekly windows are configured.
	Availability []availability.Window
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Schedule combines the weekly windows with the given maintenance periods.
func (r *Resource) Schedule(maintenance []availability.MaintenancePeriod) availability.Schedule {
	return availability.Schedule{Windows: r.Availability, Maintenance: maintenance}
}

// Filter defines parameters for listing resources.
type Filter struct {
	OrganizationID string
	Name           string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
