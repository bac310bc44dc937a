package notification

import "time"

// Kind of a booking lifecycle notification.
type Kind string

const (
	KindApproved  Kind = "approved"
	KindRejected  Kind = "rejected"
	KindCancelled Kind = "cancelled"
)

// Event is what the booking lifecycle hands over on each user-visible transition.
type Event struct {
	RecipientID  string
	Kind         Kind
	BookingID    string
	ResourceName string
	WindowStart  time.Time
	WindowEnd    time.Time
	Remarks      string // optional
}
