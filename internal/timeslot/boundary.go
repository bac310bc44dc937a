package timeslot

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultZoneName and DefaultZoneOffset describe the organizational display zone.
const (
	DefaultZoneName   = "IST"
	DefaultZoneOffset = 5*time.Hour + 30*time.Minute
)

// Boundary converts between absolute instants and display-zone slot keys.
//
// The display zone is a fixed offset. Zones that observe DST are not
// supported; ParseOffset only produces fixed zones.
type Boundary struct {
	loc *time.Location
}

// NewBoundary returns a Boundary for the given display location.
// A nil location means UTC.
func NewBoundary(loc *time.Location) Boundary {
	if loc == nil {
		loc = time.UTC
	}
	return Boundary{loc: loc}
}

// DefaultBoundary uses the organizational display zone (IST, +05:30).
func DefaultBoundary() Boundary {
	return NewBoundary(time.FixedZone(DefaultZoneName, int(DefaultZoneOffset/time.Second)))
}

// ParseOffset builds a fixed zone from an offset such as "+05:30", "-08:00" or "Z".
func ParseOffset(name, offset string) (*time.Location, error) {
	offset = strings.TrimSpace(offset)
	if offset == "Z" || offset == "" {
		return time.FixedZone(name, 0), nil
	}
	if len(offset) < 2 || (offset[0] != '+' && offset[0] != '-') {
		return nil, fmt.Errorf("invalid zone offset %q", offset)
	}
	sign := 1
	if offset[0] == '-' {
		sign = -1
	}
	hh, mm, ok := strings.Cut(offset[1:], ":")
	if !ok {
		mm = "0"
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 14 {
		return nil, fmt.Errorf("invalid zone offset %q", offset)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return nil, fmt.Errorf("invalid zone offset %q", offset)
	}
	return time.FixedZone(name, sign*(h*3600+m*60)), nil
}

// Location returns the display location.
func (b Boundary) Location() *time.Location {
	return b.loc
}

// ToKey converts an absolute instant into the display zone and truncates it to its hour slot.
func (b Boundary) ToKey(t time.Time) Key {
	lt := t.In(b.loc)
	return Key{Year: lt.Year(), Month: lt.Month(), Day: lt.Day(), Hour: lt.Hour()}
}

// ToAbsolute returns the UTC instant at which slot k starts.
func (b Boundary) ToAbsolute(k Key) time.Time {
	return time.Date(k.Year, k.Month, k.Day, k.Hour, 0, 0, 0, b.loc).UTC()
}

// IsHourAligned reports whether t falls exactly on an hour boundary of the display zone.
// For whole-hour offsets this is the same as being aligned in UTC.
func (b Boundary) IsHourAligned(t time.Time) bool {
	lt := t.In(b.loc)
	return lt.Minute() == 0 && lt.Second() == 0 && lt.Nanosecond() == 0
}

// TruncateToHour drops the sub-hour part of t as seen in the display zone.
func (b Boundary) TruncateToHour(t time.Time) time.Time {
	lt := t.In(b.loc)
	sub := time.Duration(lt.Minute())*time.Minute +
		time.Duration(lt.Second())*time.Second +
		time.Duration(lt.Nanosecond())
	return lt.Add(-sub).UTC()
}

// Today returns the hour-0 slot of the display-zone day containing now.
func (b Boundary) Today(now time.Time) Key {
	return b.ToKey(now).StartOfDay()
}

// DayWindow returns the absolute [start, end) covering days display-zone days from day.
func (b Boundary) DayWindow(day Key, days int) (time.Time, time.Time) {
	first := day.StartOfDay()
	return b.ToAbsolute(first), b.ToAbsolute(first.AddDays(days))
}
