package availability

import (
	"fmt"
	"time"

	"github.com/nekogravitycat/reservation-backend/internal/timeslot"
)

// DefaultDays is the width of the rolling grid window.
const DefaultDays = 14

// State is the status of one grid cell. The three booked states differ only for display.
type State uint8

const (
	StateUnavailable State = iota
	StateAvailable
	StateBookedApproved
	StateBookedPendingMine
	StateBookedPendingOther
)

var stateNames = map[State]string{
	StateUnavailable:        "unavailable",
	StateAvailable:          "available",
	StateBookedApproved:     "booked_approved",
	StateBookedPendingMine:  "booked_pending_mine",
	StateBookedPendingOther: "booked_pending_other",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for state, name := range stateNames {
		if name == string(b) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown cell state %q", b)
}

// Requestable reports whether a new booking may start in a cell of this state.
func (s State) Requestable() bool {
	return s == StateAvailable
}

// Booked reports whether the state is one of the booked sub-states.
func (s State) Booked() bool {
	return s == StateBookedApproved || s == StateBookedPendingMine || s == StateBookedPendingOther
}

// Occupant is a live booking as the grid needs it.
type Occupant struct {
	BookingID   string
	RequesterID string
	Purpose     string
	Start       time.Time
	End         time.Time
	Approved    bool // false means pending
}

// Cell is one hour of one day.
type Cell struct {
	Key      timeslot.Key
	State    State
	Occupant *Occupant // set only when State is booked
}

// GridInput collects everything BuildGrid reads.
type GridInput struct {
	Schedule  Schedule
	Occupants []Occupant   // live bookings intersecting the window
	From      timeslot.Key // first day, the hour is ignored
	Days      int          // defaults to DefaultDays when <= 0
	ViewerID  string       // decides pending-mine versus pending-other
}

// Grid is the materialized availability of one resource.
//
// Cells are stored as [day][hour-MinHour]. When Configured is false the grid
// has no cells at all.
type Grid struct {
	Configured bool
	From       timeslot.Key
	Days       int
	MinHour    int
	MaxHour    int
	cells      [][]Cell
}

// Width is the number of hour columns per day.
func (g *Grid) Width() int {
	return g.MaxHour - g.MinHour
}

// Row returns the cells of the day at offset day, or nil if out of range.
func (g *Grid) Row(day int) []Cell {
	if day < 0 || day >= len(g.cells) {
		return nil
	}
	return g.cells[day]
}

// At looks up the cell for k.
func (g *Grid) At(k timeslot.Key) (Cell, bool) {
	day, col, ok := g.index(k)
	if !ok {
		return Cell{}, false
	}
	return g.cells[day][col], true
}

// Count returns how many cells are in state s.
func (g *Grid) Count(s State) int {
	n := 0
	for _, row := range g.cells {
		for _, c := range row {
			if c.State == s {
				n++
			}
		}
	}
	return n
}

// Len is the total number of cells.
func (g *Grid) Len() int {
	return len(g.cells) * g.Width()
}

func (g *Grid) index(k timeslot.Key) (day, col int, ok bool) {
	if !g.Configured {
		return 0, 0, false
	}
	day = k.DaysSince(g.From)
	col = k.Hour - g.MinHour
	if day < 0 || day >= len(g.cells) || col < 0 || col >= g.Width() {
		return 0, 0, false
	}
	return day, col, true
}

// BuildGrid materializes in over the display zone of b.
//
// Weekly windows are applied first, then maintenance turns cells unavailable,
// then live bookings mark still-available cells as booked. A booking never
// overrides an unavailable cell and the first booking to claim a cell keeps it.
func BuildGrid(b timeslot.Boundary, in GridInput) *Grid {
	days := in.Days
	if days <= 0 {
		days = DefaultDays
	}
	g := &Grid{
		Configured: in.Schedule.Configured(),
		From:       in.From.StartOfDay(),
		Days:       days,
	}
	if !g.Configured {
		return g
	}

	minHour, maxHour, ok := in.Schedule.HourBounds()
	if !ok {
		minHour, maxHour = 0, HoursPerDay
	}
	g.MinHour, g.MaxHour = minHour, maxHour

	g.cells = make([][]Cell, days)
	for d := range days {
		day := g.From.AddDays(d)
		w, open := in.Schedule.WindowFor(WeekdayOf(day))
		row := make([]Cell, g.Width())
		for col := range row {
			k := day.WithHour(minHour + col)
			row[col] = Cell{Key: k, State: StateUnavailable}
			if open && w.Contains(k.Hour) {
				row[col].State = StateAvailable
			}
		}
		g.cells[d] = row
	}

	windowStart, windowEnd := b.DayWindow(g.From, days)

	for _, m := range in.Schedule.Maintenance {
		g.overlay(b, m.Start, m.End, windowStart, windowEnd, func(c *Cell) {
			c.State = StateUnavailable
			c.Occupant = nil
		})
	}

	for i := range in.Occupants {
		occ := &in.Occupants[i]
		state := StateBookedApproved
		if !occ.Approved {
			state = StateBookedPendingOther
			if in.ViewerID != "" && occ.RequesterID == in.ViewerID {
				state = StateBookedPendingMine
			}
		}
		g.overlay(b, occ.Start, occ.End, windowStart, windowEnd, func(c *Cell) {
			if c.State != StateAvailable {
				return
			}
			c.State = state
			c.Occupant = occ
		})
	}

	return g
}

// overlay calls fn for every cell whose hour intersects [start, end), clipped to the grid window.
func (g *Grid) overlay(b timeslot.Boundary, start, end, windowStart, windowEnd time.Time, fn func(*Cell)) {
	if start.Before(windowStart) {
		start = windowStart
	}
	if end.After(windowEnd) {
		end = windowEnd
	}
	for t := b.TruncateToHour(start); t.Before(end); t = t.Add(time.Hour) {
		day, col, ok := g.index(b.ToKey(t))
		if !ok {
			continue
		}
		fn(&g.cells[day][col])
	}
}
