package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/nekogravitycat/reservation-backend/internal/timeslot"
)

// Weekday is a closed set of the seven days, Sunday first like time.Weekday.
type Weekday uint8

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// AllWeekdays in calendar order starting on Sunday.
var AllWeekdays = [7]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

var weekdayNames = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// ParseWeekday accepts full or three-letter English names, case-insensitive.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range weekdayNames {
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidWindow, s)
}

// WeekdayOf returns the weekday of a slot key's calendar day.
func WeekdayOf(k timeslot.Key) Weekday {
	return FromTime(k.Weekday())
}

// FromTime converts a time.Weekday.
func FromTime(d time.Weekday) Weekday {
	return Weekday(d)
}

func (d Weekday) Valid() bool {
	return d <= Saturday
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("weekday(%d)", uint8(d))
	}
	return weekdayNames[d]
}

func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: weekday %d", ErrInvalidWindow, uint8(d))
	}
	return []byte(d.String()), nil
}

func (d *Weekday) UnmarshalText(b []byte) error {
	parsed, err := ParseWeekday(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
