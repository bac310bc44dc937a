package notification

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nekogravitycat/reservation-backend/internal/pkg/apperror"
)

var ErrNotFound = apperror.New(http.StatusNotFound, apperror.KindNotFound, "notification not found")

// Notification is the persisted in-app copy of an Event.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Kind      Kind       `json:"kind"`
	BookingID string     `json:"booking_id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

type Filter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}

// Title is the one-line summary used for the in-app entry and the email subject.
func (ev Event) Title() string {
	switch ev.Kind {
	case KindApproved:
		return fmt.Sprintf("Booking approved: %s", ev.ResourceName)
	case KindRejected:
		return fmt.Sprintf("Booking rejected: %s", ev.ResourceName)
	case KindCancelled:
		return fmt.Sprintf("Booking cancelled: %s", ev.ResourceName)
	}
	return fmt.Sprintf("Booking update: %s", ev.ResourceName)
}

// Body renders the window in loc. Remarks are appended when present.
func (ev Event) Body(loc *time.Location) string {
	const layout = "2006-01-02 15:04"
	body := fmt.Sprintf("%s, %s to %s (%s)",
		ev.ResourceName,
		ev.WindowStart.In(loc).Format(layout),
		ev.WindowEnd.In(loc).Format(layout),
		loc.String(),
	)
	if ev.Remarks != "" {
		body += "\nRemarks: " + ev.Remarks
	}
	return body
}
