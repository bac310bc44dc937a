package booking

import (
	"slices"
	"time"

	"github.com/nekogravitycat/reservation-backend/internal/notification"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCancelled, StatusCompleted},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// NextStatuses lists the statuses reachable from s in one step.
func NextStatuses(s Status) []Status {
	return slices.Clone(transitions[s])
}

// InitialStatus is the status a new booking receives.
func InitialStatus(requiresApproval bool) Status {
	if requiresApproval {
		return StatusPending
	}
	return StatusApproved
}

// StatusUpdate is one atomic status write. It only applies while the booking is still in From.
type StatusUpdate struct {
	From      Status
	To        Status
	Remarks   *string
	DecidedBy *string
	DecidedAt *time.Time
}

func eventKind(to Status) (notification.Kind, bool) {
	switch to {
	case StatusApproved:
		return notification.KindApproved, true
	case StatusRejected:
		return notification.KindRejected, true
	case StatusCancelled:
		return notification.KindCancelled, true
	}
	return "", false
}
