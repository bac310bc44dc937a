// Package selection turns a sequence of grid clicks into a contiguous slot range.
//
// A Selector is advisory. Booking admission re-checks everything against the
// store, so nothing here is trusted for correctness.
package selection

import (
	"time"

	"github.com/nekogravitycat/reservation-backend/internal/availability"
	"github.com/nekogravitycat/reservation-backend/internal/timeslot"
)

// Phase of a Selector.
type Phase uint8

const (
	Empty Phase = iota
	Anchored
	Ranged
)

func (p Phase) String() string {
	switch p {
	case Anchored:
		return "anchored"
	case Ranged:
		return "ranged"
	default:
		return "empty"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Cells is the grid view a Selector clicks against. *availability.Grid satisfies it.
type Cells interface {
	At(k timeslot.Key) (availability.Cell, bool)
}

// Selector is a two-click range selection. It is not safe for concurrent use.
type Selector struct {
	cells Cells
	phase Phase
	start timeslot.Key
	end   timeslot.Key
}

// New returns an empty Selector over cells.
func New(cells Cells) *Selector {
	return &Selector{cells: cells}
}

// Replay applies clicks in order and returns the resulting Selector.
func Replay(cells Cells, clicks []timeslot.Key) *Selector {
	s := New(cells)
	for _, k := range clicks {
		s.Click(k)
	}
	return s
}

func (s *Selector) requestable(k timeslot.Key) bool {
	c, ok := s.cells.At(k)
	return ok && c.State.Requestable()
}

// Click applies one click and returns the new phase.
// Clicks on cells that cannot be requested are ignored.
func (s *Selector) Click(k timeslot.Key) Phase {
	if !s.requestable(k) {
		return s.phase
	}

	switch s.phase {
	case Empty:
		s.anchor(k)
	case Anchored:
		if k == s.start {
			break
		}
		s.phase = Ranged
		if k.Before(s.start) {
			s.start, s.end = k, s.start
		} else {
			s.end = k
		}
	case Ranged:
		// The first click stays the anchor until a click lands before it.
		if k.Before(s.start) {
			s.anchor(k)
		} else {
			s.end = k
		}
	}
	return s.phase
}

func (s *Selector) anchor(k timeslot.Key) {
	s.phase = Anchored
	s.start, s.end = k, k
}

// Phase returns the current phase.
func (s *Selector) Phase() Phase {
	return s.phase
}

// Range returns the chronological bounds of the selection. For an anchored
// selection start and end are equal. ok is false when nothing is selected.
func (s *Selector) Range() (start, end timeslot.Key, ok bool) {
	if s.phase == Empty {
		return timeslot.Key{}, timeslot.Key{}, false
	}
	return s.start, s.end, true
}

// Selected returns the available slots of the current range.
func (s *Selector) Selected() []timeslot.Key {
	if s.phase == Empty {
		return nil
	}
	return s.SlotsBetween(s.start, s.end)
}

// SlotsBetween returns the slots from the earlier to the later of a and b,
// inclusive, leaving out every slot whose cell is not available.
func (s *Selector) SlotsBetween(a, b timeslot.Key) []timeslot.Key {
	if b.Before(a) {
		a, b = b, a
	}
	var out []timeslot.Key
	for k := a; !k.After(b); k = k.Next() {
		if s.requestable(k) {
			out = append(out, k)
		}
	}
	return out
}

// Duration is the selection length in hours: 0 when empty, 1 when anchored.
func (s *Selector) Duration() int {
	switch s.phase {
	case Anchored:
		return 1
	case Ranged:
		return s.end.DaysSince(s.start)*24 + s.end.Hour + 1 - s.start.Hour
	default:
		return 0
	}
}

// Window returns the absolute [start, end) the selection would request.
func (s *Selector) Window(b timeslot.Boundary) (start, end time.Time, ok bool) {
	if s.phase == Empty {
		return time.Time{}, time.Time{}, false
	}
	start = b.ToAbsolute(s.start)
	return start, start.Add(time.Duration(s.Duration()) * time.Hour), true
}

// Clear resets the selection to empty.
func (s *Selector) Clear() {
	s.phase = Empty
	s.start, s.end = timeslot.Key{}, timeslot.Key{}
}
