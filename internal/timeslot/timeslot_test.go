package timeslot

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextHourRollover(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "within day", in: "2026-03-10_09", want: "2026-03-10_10"},
		{name: "day rollover", in: "2026-03-10_23", want: "2026-03-11_00"},
		{name: "month rollover", in: "2026-04-30_23", want: "2026-05-01_00"},
		{name: "february non-leap", in: "2026-02-28_23", want: "2026-03-01_00"},
		{name: "february leap", in: "2028-02-28_23", want: "2028-02-29_00"},
		{name: "year rollover", in: "2025-12-31_23", want: "2026-01-01_00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := ParseKey(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, k.Next().String())
		})
	}
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("2026-01-05_9")
	require.NoError(t, err)
	assert.Equal(t, Key{Year: 2026, Month: time.January, Day: 5, Hour: 9}, k)
	assert.Equal(t, "2026-01-05_09", k.String())

	for _, bad := range []string{"", "2026-01-05", "2026-01-05_24", "2026-01-05_-1", "2026-13-05_01", "x_1"} {
		_, err := ParseKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}

func TestKeyTextRoundTrip(t *testing.T) {
	in := map[Key]int{NewKey(2026, 1, 5, 9): 1}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"2026-01-05_09":1}`, string(b))

	var out map[Key]int
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestNewKeyNormalizes(t *testing.T) {
	assert.Equal(t, "2026-01-01_00", NewKey(2025, 12, 31, 24).String())
	assert.Equal(t, "2026-03-01_05", NewKey(2026, 2, 29, 5).String())
}

func TestDaysSinceAndCompare(t *testing.T) {
	a := NewKey(2025, 12, 30, 22)
	b := NewKey(2026, 1, 2, 3)

	assert.Equal(t, 3, b.DaysSince(a))
	assert.Equal(t, -3, a.DaysSince(b))
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, time.Monday, NewKey(2026, 1, 5, 0).Weekday())
}

func TestBoundaryConversions(t *testing.T) {
	b := DefaultBoundary()

	// 03:30 UTC is 09:00 IST.
	abs := time.Date(2026, 1, 5, 3, 30, 0, 0, time.UTC)
	k := b.ToKey(abs)
	assert.Equal(t, "2026-01-05_09", k.String())
	assert.True(t, b.ToAbsolute(k).Equal(abs))
	assert.True(t, b.IsHourAligned(abs))
	assert.False(t, b.IsHourAligned(time.Date(2026, 1, 5, 3, 0, 0, 0, time.UTC)), "UTC hour is :30 in IST")

	// 20:00 UTC is 01:30 IST on the next day.
	late := time.Date(2026, 1, 5, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-01-06_01", b.ToKey(late).String())
}

func TestBoundaryDayBoundary(t *testing.T) {
	b := DefaultBoundary()

	// Last slot of the IST day crosses into the next UTC-visible day correctly.
	k := NewKey(2026, 1, 31, 23)
	abs := b.ToAbsolute(k)
	assert.Equal(t, time.Date(2026, 1, 31, 17, 30, 0, 0, time.UTC), abs)
	assert.Equal(t, "2026-02-01_00", b.ToKey(abs.Add(time.Hour)).String())
	assert.Equal(t, b.ToKey(abs.Add(time.Hour)), k.Next())
}

func TestHourAlignmentIdempotence(t *testing.T) {
	zones := []Boundary{DefaultBoundary(), NewBoundary(time.UTC), NewBoundary(time.FixedZone("X", -8*3600))}
	base := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	for _, b := range zones {
		for i := 0; i < 24*60; i += 7 {
			tm := base.Add(time.Duration(i)*time.Minute + 13*time.Second + 250*time.Millisecond)
			got := b.ToAbsolute(b.ToKey(tm))
			assert.True(t, got.Equal(b.TruncateToHour(tm)), "zone %s at %s", b.Location(), tm)
			assert.True(t, b.IsHourAligned(got))
		}
	}
}

func TestIsHourAligned(t *testing.T) {
	b := NewBoundary(time.UTC)
	on := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	assert.True(t, b.IsHourAligned(on))
	assert.False(t, b.IsHourAligned(on.Add(time.Minute)))
	assert.False(t, b.IsHourAligned(on.Add(time.Second)))
	assert.False(t, b.IsHourAligned(on.Add(time.Millisecond)))
}

func TestParseOffset(t *testing.T) {
	loc, err := ParseOffset("IST", "+05:30")
	require.NoError(t, err)
	_, off := time.Date(2026, 6, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 5*3600+1800, off)

	loc, err = ParseOffset("PST", "-08")
	require.NoError(t, err)
	_, off = time.Date(2026, 6, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, -8*3600, off)

	for _, bad := range []string{"05:30", "+25:00", "+05:61", "+ab"} {
		_, err := ParseOffset("bad", bad)
		assert.Error(t, err, bad)
	}
}

func TestDayWindow(t *testing.T) {
	b := DefaultBoundary()
	start, end := b.DayWindow(NewKey(2026, 1, 5, 13), 14)

	assert.Equal(t, time.Date(2026, 1, 4, 18, 30, 0, 0, time.UTC), start)
	assert.Equal(t, 14*24*time.Hour, end.Sub(start))
	assert.Equal(t, NewKey(2026, 1, 5, 0), b.Today(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)))
}
