package booking

import (
	"time"

	"github.com/nekogravitycat/reservation-backend/internal/timeslot"
)

// Guard holds the admission checks that need no store access.
// The overlap check runs inside the repository's insert transaction.
type Guard struct {
	Boundary timeslot.Boundary
}

// Check validates [start, end) against maxHours. The first failing check wins:
// hour alignment, then ordering, then duration.
func (g Guard) Check(start, end time.Time, maxHours int) error {
	if !g.Boundary.IsHourAligned(start) || !g.Boundary.IsHourAligned(end) {
		return ErrNotHourAligned
	}
	if !end.After(start) {
		return ErrInvalidTimeRange
	}
	if hours := int(end.Sub(start) / time.Hour); hours > maxHours {
		return DurationExceeded(hours, maxHours)
	}
	return nil
}

// Overlaps is the half-open interval test used for admission.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
