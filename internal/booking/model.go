package booking

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/reservation-backend/internal/availability"
	"github.com/nekogravitycat/reservation-backend/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, apperror.KindNotFound, "booking not found")
	ErrResourceNotFound  = apperror.New(http.StatusNotFound, apperror.KindNotFound, "resource not found")
	ErrNotHourAligned    = apperror.New(http.StatusBadRequest, apperror.KindValidation, "start and end time must be on the hour")
	ErrInvalidTimeRange  = apperror.New(http.StatusBadRequest, apperror.KindValidation, "start time must be before end time")
	ErrStartTimePast     = apperror.New(http.StatusBadRequest, apperror.KindValidation, "cannot create booking in the past")
	ErrWindowStarted     = apperror.New(http.StatusBadRequest, apperror.KindValidation, "booking window has already started")
	ErrRemarksRequired   = apperror.New(http.StatusBadRequest, apperror.KindValidation, "remarks are required")
	ErrInvalidGridRange  = apperror.New(http.StatusBadRequest, apperror.KindValidation, "invalid grid range")
	ErrDurationExceeded  = apperror.New(http.StatusUnprocessableEntity, apperror.KindDurationExceeded, "booking exceeds the maximum duration")
	ErrTimeConflict      = apperror.New(http.StatusConflict, apperror.KindConflict, "time slot already booked")
	ErrPermissionDenied  = apperror.New(http.StatusForbidden, apperror.KindAuthorization, "permission denied")
	ErrInvalidTransition = apperror.New(http.StatusConflict, apperror.KindInvalidTransition, "invalid booking status transition")
)

// DurationExceeded reports the requested and allowed hours.
func DurationExceeded(requested, allowed int) error {
	return ErrDurationExceeded.WithDetails(map[string]any{
		"requested_hours": requested,
		"allowed_hours":   allowed,
	})
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// LiveStatuses occupy the resource timeline.
var LiveStatuses = []Status{StatusPending, StatusApproved}

// TerminalStatuses accept no further transition.
var TerminalStatuses = []Status{StatusRejected, StatusCancelled, StatusCompleted}

// Live reports whether a booking in status s occupies its window.
func (s Status) Live() bool {
	return s == StatusPending || s == StatusApproved
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

type Booking struct {
	ID             string
	ResourceID     string
	ResourceName   string
	OrganizationID string
	UserID         string
	UserName       string
	Purpose        string
	StartTime      time.Time
	EndTime        time.Time
	Status         Status
	Remarks        string
	DecidedBy      *string
	DecidedAt      *time.Time
	ArchivedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Hours is the booked length in whole hours.
func (b *Booking) Hours() int {
	return int(b.EndTime.Sub(b.StartTime) / time.Hour)
}

// Occupant is the grid view of a live booking.
func (b *Booking) Occupant() availability.Occupant {
	return availability.Occupant{
		BookingID:   b.ID,
		RequesterID: b.UserID,
		Purpose:     b.Purpose,
		Start:       b.StartTime,
		End:         b.EndTime,
		Approved:    b.Status == StatusApproved,
	}
}

type Filter struct {
	UserID          string
	ResourceID      string
	OrganizationID  string
	Status          Status
	From            *time.Time // bookings ending after this time
	To              *time.Time // bookings starting before this time
	IncludeArchived bool
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}
