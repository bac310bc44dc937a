package availability

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nekogravitycat/reservation-backend/internal/pkg/apperror"
)

var (
	ErrInvalidWindow      = apperror.New(http.StatusBadRequest, apperror.KindValidation, "invalid availability window")
	ErrDuplicateDay       = apperror.New(http.StatusBadRequest, apperror.KindValidation, "only one availability window per weekday is allowed")
	ErrInvalidMaintenance = apperror.New(http.StatusBadRequest, apperror.KindValidation, "maintenance period must end after it starts")
)

// HoursPerDay bounds window hours; EndHour may equal it to include the 23:00 slot.
const HoursPerDay = 24

// Window is a weekly recurring interval [StartHour, EndHour) on one weekday.
type Window struct {
	Day       Weekday `json:"day"`
	StartHour int     `json:"start_hour"`
	EndHour   int     `json:"end_hour"`
}

// Contains reports whether the slot starting at hour lies inside the window.
func (w Window) Contains(hour int) bool {
	return hour >= w.StartHour && hour < w.EndHour
}

func (w Window) validate() error {
	if !w.Day.Valid() {
		return ErrInvalidWindow
	}
	if w.StartHour < 0 || w.StartHour > 23 || w.EndHour > HoursPerDay || w.StartHour >= w.EndHour {
		return ErrInvalidWindow.WithDetails(map[string]any{
			"day":        w.Day.String(),
			"start_hour": w.StartHour,
			"end_hour":   w.EndHour,
		})
	}
	return nil
}

// ValidateWindows checks every window and that no weekday appears twice.
func ValidateWindows(windows []Window) error {
	var seen [7]bool
	for _, w := range windows {
		if err := w.validate(); err != nil {
			return err
		}
		if seen[w.Day] {
			return ErrDuplicateDay.WithDetails(map[string]any{"day": w.Day.String()})
		}
		seen[w.Day] = true
	}
	return nil
}

// MaintenancePeriod removes availability over an absolute interval [Start, End).
type MaintenancePeriod struct {
	ID         string
	ResourceID string
	Start      time.Time
	End        time.Time
	Reason     string
	CreatedAt  time.Time
}

// Validate checks the period bounds and normalizes the reason.
func (p *MaintenancePeriod) Validate() error {
	p.Reason = strings.TrimSpace(p.Reason)
	if p.Start.IsZero() || p.End.IsZero() || !p.End.After(p.Start) {
		return ErrInvalidMaintenance
	}
	return nil
}

// Overlaps applies the half-open overlap test against [start, end).
func (p MaintenancePeriod) Overlaps(start, end time.Time) bool {
	return p.Start.Before(end) && p.End.After(start)
}

// Schedule is a resource's availability: weekly windows minus maintenance.
//
// A nil Windows slice means availability was never configured; an empty,
// non-nil slice means it was configured with no open days.
type Schedule struct {
	Windows     []Window
	Maintenance []MaintenancePeriod
}

// Configured reports whether the resource has an availability list at all.
func (s Schedule) Configured() bool {
	return s.Windows != nil
}

// WindowFor returns the window of a weekday, if any.
func (s Schedule) WindowFor(d Weekday) (Window, bool) {
	for _, w := range s.Windows {
		if w.Day == d {
			return w, true
		}
	}
	return Window{}, false
}

// HourBounds returns the union [min, max) of all window hours.
// ok is false when there are no windows.
func (s Schedule) HourBounds() (minHour, maxHour int, ok bool) {
	if len(s.Windows) == 0 {
		return 0, 0, false
	}
	minHour, maxHour = HoursPerDay, 0
	for _, w := range s.Windows {
		minHour = min(minHour, w.StartHour)
		maxHour = max(maxHour, w.EndHour)
	}
	return minHour, maxHour, true
}

func (s Schedule) String() string {
	parts := make([]string, 0, len(s.Windows))
	for _, w := range s.Windows {
		parts = append(parts, fmt.Sprintf("%s %02d-%02d", w.Day, w.StartHour, w.EndHour))
	}
	return strings.Join(parts, ", ")
}
