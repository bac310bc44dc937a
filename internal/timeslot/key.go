package timeslot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	ErrInvalidKey  = errors.New("invalid slot key")
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
)

// Key identifies one hour-wide slot of the display grid: a calendar day in the
// display timezone plus an hour of that day. Its text form is "2006-01-02_15".
//
// Key is pure calendar data. Arithmetic on it never consults a time zone, so a
// day always has 24 slots.
type Key struct {
	Year  int
	Month time.Month
	Day   int
	Hour  int
}

// NewKey normalizes its arguments, so NewKey(2025, 12, 31, 24) is 2026-01-01_00.
func NewKey(year int, month time.Month, day, hour int) Key {
	return fromCivil(time.Date(year, month, day, hour, 0, 0, 0, time.UTC))
}

// ParseKey parses "YYYY-MM-DD_H" or "YYYY-MM-DD_HH".
func ParseKey(s string) (Key, error) {
	datePart, hourPart, ok := strings.Cut(s, "_")
	if !ok {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	d, err := time.Parse(dateLayout, datePart)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	h, err := strconv.Atoi(hourPart)
	if err != nil || h < 0 || h > 23 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return Key{Year: d.Year(), Month: d.Month(), Day: d.Day(), Hour: h}, nil
}

// ParseDate parses "YYYY-MM-DD" into the first slot (hour 0) of that day.
func ParseDate(s string) (Key, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Key{Year: d.Year(), Month: d.Month(), Day: d.Day()}, nil
}

func fromCivil(t time.Time) Key {
	return Key{Year: t.Year(), Month: t.Month(), Day: t.Day(), Hour: t.Hour()}
}

// civil returns the key as a UTC wall-clock time. UTC has no DST, so the
// result is safe for day and hour arithmetic.
func (k Key) civil() time.Time {
	return time.Date(k.Year, k.Month, k.Day, k.Hour, 0, 0, 0, time.UTC)
}

func (k Key) String() string {
	return fmt.Sprintf("%04d-%02d-%02d_%02d", k.Year, int(k.Month), k.Day, k.Hour)
}

// DateString returns the "YYYY-MM-DD" part of the key.
func (k Key) DateString() string {
	return k.civil().Format(dateLayout)
}

// Weekday of the key's calendar day.
func (k Key) Weekday() time.Weekday {
	return k.civil().Weekday()
}

// Next returns the slot one hour later, rolling over day, month and year.
func (k Key) Next() Key {
	return fromCivil(k.civil().Add(time.Hour))
}

// AddDays moves the key by n calendar days, keeping the hour.
func (k Key) AddDays(n int) Key {
	return fromCivil(k.civil().AddDate(0, 0, n))
}

// StartOfDay returns the hour-0 slot of the key's day.
func (k Key) StartOfDay() Key {
	k.Hour = 0
	return k
}

// WithHour returns the slot at hour h of the key's day.
func (k Key) WithHour(h int) Key {
	k.Hour = h
	return k
}

// DaysSince returns the number of calendar days from other's day to k's day.
func (k Key) DaysSince(other Key) int {
	return int(k.StartOfDay().civil().Sub(other.StartOfDay().civil()) / (24 * time.Hour))
}

// Compare returns -1, 0 or +1 depending on whether k is before, equal to or after other.
func (k Key) Compare(other Key) int {
	return k.civil().Compare(other.civil())
}

func (k Key) Before(other Key) bool {
	return k.Compare(other) < 0
}

func (k Key) After(other Key) bool {
	return k.Compare(other) > 0
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool {
	return k == Key{}
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(b []byte) error {
	parsed, err := ParseKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
