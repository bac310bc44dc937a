package availability

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/reservation-backend/internal/timeslot"
)

var ist = timeslot.DefaultBoundary()

// Monday.
var monday = timeslot.NewKey(2026, time.January, 5, 0)

func weekdays(start, end int) []Window {
	var out []Window
	for _, d := range []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday} {
		out = append(out, Window{Day: d, StartHour: start, EndHour: end})
	}
	return out
}

func at(day timeslot.Key, hour int) time.Time {
	return ist.ToAbsolute(day.WithHour(hour))
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    Weekday
		wantErr bool
	}{
		{in: "monday", want: Monday},
		{in: "Tue", want: Tuesday},
		{in: " SATURDAY ", want: Saturday},
		{in: "sun", want: Sunday},
		{in: "funday", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWeekday(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidWindow))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWindowJSON(t *testing.T) {
	var w Window
	require.NoError(t, json.Unmarshal([]byte(`{"day":"wednesday","start_hour":9,"end_hour":17}`), &w))
	assert.Equal(t, Window{Day: Wednesday, StartHour: 9, EndHour: 17}, w)

	b, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"wednesday","start_hour":9,"end_hour":17}`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`{"day":"someday","start_hour":9,"end_hour":17}`), &w))
}

func TestValidateWindows(t *testing.T) {
	tests := []struct {
		name    string
		windows []Window
		wantErr error
	}{
		{name: "weekdays", windows: weekdays(9, 17)},
		{name: "empty", windows: []Window{}},
		{name: "full day", windows: []Window{{Day: Sunday, StartHour: 0, EndHour: 24}}},
		{name: "start equals end", windows: []Window{{Day: Monday, StartHour: 9, EndHour: 9}}, wantErr: ErrInvalidWindow},
		{name: "start after end", windows: []Window{{Day: Monday, StartHour: 18, EndHour: 9}}, wantErr: ErrInvalidWindow},
		{name: "negative start", windows: []Window{{Day: Monday, StartHour: -1, EndHour: 9}}, wantErr: ErrInvalidWindow},
		{name: "end past midnight", windows: []Window{{Day: Monday, StartHour: 9, EndHour: 25}}, wantErr: ErrInvalidWindow},
		{name: "bad weekday", windows: []Window{{Day: Weekday(7), StartHour: 9, EndHour: 10}}, wantErr: ErrInvalidWindow},
		{
			name:    "duplicate day",
			windows: []Window{{Day: Friday, StartHour: 9, EndHour: 12}, {Day: Friday, StartHour: 13, EndHour: 17}},
			wantErr: ErrDuplicateDay,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWindows(tt.windows)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMaintenanceValidate(t *testing.T) {
	p := MaintenancePeriod{Start: at(monday, 10), End: at(monday, 9), Reason: " x "}
	assert.ErrorIs(t, p.Validate(), ErrInvalidMaintenance)

	p.End = at(monday, 12)
	require.NoError(t, p.Validate())
	assert.Equal(t, "x", p.Reason)
	assert.True(t, p.Overlaps(at(monday, 11), at(monday, 13)))
	assert.False(t, p.Overlaps(at(monday, 12), at(monday, 13)))
}

func TestBuildGridHourBounds(t *testing.T) {
	sched := Schedule{Windows: []Window{
		{Day: Monday, StartHour: 9, EndHour: 17},
		{Day: Saturday, StartHour: 7, EndHour: 12},
	}}
	g := BuildGrid(ist, GridInput{Schedule: sched, From: monday})

	require.True(t, g.Configured)
	assert.Equal(t, DefaultDays, g.Days)
	assert.Equal(t, 7, g.MinHour)
	assert.Equal(t, 17, g.MaxHour)
	assert.Equal(t, 10, g.Width())

	// Closed Sunday still renders the full width.
	sunday := g.Row(6)
	require.Len(t, sunday, 10)
	for _, c := range sunday {
		assert.Equal(t, StateUnavailable, c.State)
	}

	mon := g.Row(0)
	assert.Equal(t, StateUnavailable, mon[0].State) // 07
	assert.Equal(t, StateAvailable, mon[2].State)   // 09
	assert.Equal(t, monday.WithHour(9), mon[2].Key)

	_, ok := g.At(monday.WithHour(6))
	assert.False(t, ok)
	_, ok = g.At(monday.WithHour(17))
	assert.False(t, ok)
	_, ok = g.At(monday.AddDays(DefaultDays).WithHour(9))
	assert.False(t, ok)
}

func TestBuildGridCoverage(t *testing.T) {
	sched := Schedule{
		Windows:     weekdays(8, 20),
		Maintenance: []MaintenancePeriod{{Start: at(monday, 12), End: at(monday.AddDays(1), 10)}},
	}
	occ := []Occupant{
		{BookingID: "a", RequesterID: "u1", Start: at(monday, 8), End: at(monday, 10), Approved: true},
		{BookingID: "b", RequesterID: "u2", Start: at(monday.AddDays(2), 9), End: at(monday.AddDays(2), 11)},
	}
	g := BuildGrid(ist, GridInput{Schedule: sched, Occupants: occ, From: monday, Days: 7, ViewerID: "u1"})

	total := 0
	for _, s := range []State{StateUnavailable, StateAvailable, StateBookedApproved, StateBookedPendingMine, StateBookedPendingOther} {
		total += g.Count(s)
	}
	assert.Equal(t, 7*12, g.Len())
	assert.Equal(t, g.Len(), total)

	for d := range g.Days {
		row := g.Row(d)
		require.Len(t, row, g.Width())
		for col, c := range row {
			assert.Equal(t, monday.AddDays(d).WithHour(g.MinHour+col), c.Key)
			assert.Equal(t, c.State.Booked(), c.Occupant != nil)
		}
	}
}

func TestBuildGridNoAvailabilityEntries(t *testing.T) {
	occ := []Occupant{{BookingID: "stale", Start: at(monday, 9), End: at(monday, 11), Approved: true}}
	g := BuildGrid(ist, GridInput{Schedule: Schedule{Windows: []Window{}}, Occupants: occ, From: monday})

	require.True(t, g.Configured)
	assert.Equal(t, DefaultDays*24, g.Len())
	assert.Equal(t, g.Len(), g.Count(StateUnavailable))
	assert.Zero(t, g.Count(StateAvailable))
	assert.Zero(t, g.Count(StateBookedApproved))
}

func TestBuildGridUnconfigured(t *testing.T) {
	g := BuildGrid(ist, GridInput{Schedule: Schedule{}, From: monday})

	assert.False(t, g.Configured)
	assert.Zero(t, g.Len())
	assert.Nil(t, g.Row(0))
	_, ok := g.At(monday.WithHour(9))
	assert.False(t, ok)
}

func TestBuildGridTuesdayMaintenance(t *testing.T) {
	tuesday := monday.AddDays(1)
	end := ist.ToAbsolute(tuesday.WithHour(23)).Add(59 * time.Minute)
	sched := Schedule{
		Windows:     []Window{{Day: Tuesday, StartHour: 9, EndHour: 17}},
		Maintenance: []MaintenancePeriod{{Start: at(tuesday, 0), End: end, Reason: "servicing"}},
	}
	g := BuildGrid(ist, GridInput{Schedule: sched, From: monday})

	for _, c := range g.Row(1) {
		assert.Equal(t, StateUnavailable, c.State, c.Key.String())
	}
	// The following Tuesday is unaffected.
	for _, c := range g.Row(8) {
		assert.Equal(t, StateAvailable, c.State, c.Key.String())
	}
}

func TestBuildGridBookedStates(t *testing.T) {
	sched := Schedule{Windows: weekdays(9, 17)}
	occ := []Occupant{
		{BookingID: "approved", RequesterID: "other", Purpose: "lab", Start: at(monday, 9), End: at(monday, 10), Approved: true},
		{BookingID: "mine", RequesterID: "me", Start: at(monday, 10), End: at(monday, 12)},
		{BookingID: "theirs", RequesterID: "other", Start: at(monday, 12), End: at(monday, 13)},
		// Overlaps "mine"; the earlier occupant keeps the cell.
		{BookingID: "late", RequesterID: "other", Start: at(monday, 11), End: at(monday, 12), Approved: true},
		// Sticks out past the window; the 17:00 hour is outside the grid.
		{BookingID: "edge", RequesterID: "other", Start: at(monday, 16), End: at(monday, 18), Approved: true},
		// Saturday is closed, so a stale booking stays unavailable.
		{BookingID: "stale", RequesterID: "other", Start: at(monday.AddDays(5), 9), End: at(monday.AddDays(5), 11), Approved: true},
	}
	g := BuildGrid(ist, GridInput{Schedule: sched, Occupants: occ, From: monday, ViewerID: "me"})

	cell := func(day timeslot.Key, hour int) Cell {
		c, ok := g.At(day.WithHour(hour))
		require.True(t, ok)
		return c
	}

	assert.Equal(t, StateBookedApproved, cell(monday, 9).State)
	assert.Equal(t, "lab", cell(monday, 9).Occupant.Purpose)
	assert.Equal(t, StateBookedPendingMine, cell(monday, 10).State)
	assert.Equal(t, StateBookedPendingMine, cell(monday, 11).State)
	assert.Equal(t, "mine", cell(monday, 11).Occupant.BookingID)
	assert.Equal(t, StateBookedPendingOther, cell(monday, 12).State)
	assert.Equal(t, StateAvailable, cell(monday, 13).State)
	assert.Equal(t, StateBookedApproved, cell(monday, 16).State)
	assert.Equal(t, StateUnavailable, cell(monday.AddDays(5), 9).State)
	assert.Nil(t, cell(monday.AddDays(5), 9).Occupant)

	for _, s := range []State{StateBookedApproved, StateBookedPendingMine, StateBookedPendingOther} {
		assert.False(t, s.Requestable())
	}
	assert.True(t, StateAvailable.Requestable())
}

func TestBuildGridMaintenanceBeatsBooking(t *testing.T) {
	sched := Schedule{
		Windows:     weekdays(9, 17),
		Maintenance: []MaintenancePeriod{{Start: at(monday, 9).Add(30 * time.Minute), End: at(monday, 10)}},
	}
	occ := []Occupant{{BookingID: "a", Start: at(monday, 9), End: at(monday, 11), Approved: true}}
	g := BuildGrid(ist, GridInput{Schedule: sched, Occupants: occ, From: monday})

	c, _ := g.At(monday.WithHour(9))
	assert.Equal(t, StateUnavailable, c.State)
	c, _ = g.At(monday.WithHour(10))
	assert.Equal(t, StateBookedApproved, c.State)
}

func TestStateText(t *testing.T) {
	b, err := json.Marshal(map[string]State{"s": StateBookedPendingMine})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"booked_pending_mine"}`, string(b))
}
