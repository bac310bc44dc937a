package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/reservation-backend/internal/auth"
	"github.com/nekogravitycat/reservation-backend/internal/availability"
	"github.com/nekogravitycat/reservation-backend/internal/notification"
	"github.com/nekogravitycat/reservation-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/reservation-backend/internal/pkg/logger"
	"github.com/nekogravitycat/reservation-backend/internal/resource"
	"github.com/nekogravitycat/reservation-backend/internal/selection"
	"github.com/nekogravitycat/reservation-backend/internal/timeslot"
)

var (
	ist    = timeslot.DefaultBoundary()
	monday = timeslot.NewKey(2026, time.January, 5, 0)

	alice    = auth.Principal{UserID: "alice", Role: auth.RoleUser}
	bob      = auth.Principal{UserID: "bob", Role: auth.RoleUser}
	admin    = auth.Principal{UserID: "admin", Role: auth.RoleAdmin, ScopeID: "org-1"}
	outsider = auth.Principal{UserID: "outsider", Role: auth.RoleAdmin, ScopeID: "org-2"}
	root     = auth.Principal{UserID: "root", Role: auth.RoleSystemAdmin}
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fixture struct {
	svc      Service
	repo     *memRepo
	notifier *recordingNotifier
	clock    *clock
}

func weekdayWindows() []availability.Window {
	var out []availability.Window
	for _, d := range []availability.Weekday{availability.Monday, availability.Tuesday, availability.Wednesday, availability.Thursday, availability.Friday} {
		out = append(out, availability.Window{Day: d, StartHour: 9, EndHour: 17})
	}
	return out
}

// newFixture has "instant" (auto-approve), "reviewed" (requires approval) and "unconfigured" resources in org-1.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	resources := &fakeResources{
		resources: map[string]*resource.Resource{
			"instant":      {ID: "instant", OrganizationID: "org-1", Name: "Spectrometer", MaxBookingHours: 4, Availability: weekdayWindows()},
			"reviewed":     {ID: "reviewed", OrganizationID: "org-1", Name: "Cluster", MaxBookingHours: 4, RequiresApproval: true, Availability: weekdayWindows()},
			"unconfigured": {ID: "unconfigured", OrganizationID: "org-1", Name: "Room", MaxBookingHours: 2},
		},
		maintenance: map[string][]availability.MaintenancePeriod{},
	}
	f := &fixture{
		repo:     newMemRepo(),
		notifier: &recordingNotifier{},
		clock:    &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	f.svc = NewService(f.repo, resources, f.notifier, logger.Discard(), Config{Boundary: ist, Now: f.clock.Now})
	return f
}

func window(day timeslot.Key, from, to int) (time.Time, time.Time) {
	return ist.ToAbsolute(day.WithHour(from)), ist.ToAbsolute(day.WithHour(to))
}

func (f *fixture) book(t *testing.T, p auth.Principal, resourceID string, from, to int) *Booking {
	t.Helper()
	start, end := window(monday, from, to)
	b, err := f.svc.Create(context.Background(), p, CreateRequest{ResourceID: resourceID, StartTime: start, EndTime: end, Purpose: " experiment "})
	require.NoError(t, err)
	return b
}

func TestScenarioAdjacentBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.book(t, alice, "instant", 10, 12)
	assert.Equal(t, StatusApproved, a.Status)
	require.NotNil(t, a.DecidedBy)
	assert.Equal(t, "alice", *a.DecidedBy)
	assert.Equal(t, "experiment", a.Purpose)

	start, end := window(monday, 11, 13)
	_, err := f.svc.Create(ctx, bob, CreateRequest{ResourceID: "instant", StartTime: start, EndTime: end})
	assert.ErrorIs(t, err, ErrTimeConflict)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	c := f.book(t, bob, "instant", 12, 14)
	assert.Equal(t, StatusApproved, c.Status)
	assert.Zero(t, f.notifier.count(), "creation sends no notification")
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, end := window(monday, 10, 12)
	pastStart, pastEnd := window(timeslot.NewKey(2025, time.December, 29, 0), 10, 12)

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{name: "unknown resource", req: CreateRequest{ResourceID: "nope", StartTime: start, EndTime: end}, want: ErrResourceNotFound},
		{name: "misaligned", req: CreateRequest{ResourceID: "instant", StartTime: start.Add(time.Minute), EndTime: end}, want: ErrNotHourAligned},
		{name: "reversed", req: CreateRequest{ResourceID: "instant", StartTime: end, EndTime: start}, want: ErrInvalidTimeRange},
		{name: "too long", req: CreateRequest{ResourceID: "instant", StartTime: start, EndTime: start.Add(5 * time.Hour)}, want: ErrDurationExceeded},
		{name: "in the past", req: CreateRequest{ResourceID: "instant", StartTime: pastStart, EndTime: pastEnd}, want: ErrStartTimePast},
		{name: "past and misaligned", req: CreateRequest{ResourceID: "instant", StartTime: pastStart.Add(time.Second), EndTime: pastEnd}, want: ErrNotHourAligned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, alice, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, f.repo.creates, "validation failures never reach the store")
}

func TestCreateOutsideAvailabilityIsAdmitted(t *testing.T) {
	f := newFixture(t)
	// Saturday night is outside every window; admission only guards overlap and duration.
	start, end := window(monday.AddDays(5), 22, 24)
	_, err := f.svc.Create(context.Background(), alice, CreateRequest{ResourceID: "instant", StartTime: start, EndTime: end})
	assert.NoError(t, err)
}

func TestCreateRetriesContentionOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, end := window(monday, 9, 10)

	f.repo.contention = 1
	b, err := f.svc.Create(ctx, alice, CreateRequest{ResourceID: "instant", StartTime: start, EndTime: end})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, 2, f.repo.creates)

	f.repo.contention = 2
	start, end = window(monday, 14, 15)
	_, err = f.svc.Create(ctx, alice, CreateRequest{ResourceID: "instant", StartTime: start, EndTime: end})
	assert.ErrorIs(t, err, ErrTimeConflict)
	assert.Equal(t, 4, f.repo.creates)
}

func TestConcurrentAdmissionNoDoubleBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every window contains 11:00, so all pairs overlap.
			from := 9 + i%3
			start, end := window(monday, from, from+3)
			p := auth.Principal{UserID: "user", Role: auth.RoleUser}
			_, err := f.svc.Create(ctx, p, CreateRequest{ResourceID: "instant", StartTime: start, EndTime: end})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrTimeConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)

	// Different resources do not contend.
	start, end := window(monday, 10, 12)
	_, err := f.svc.Create(ctx, alice, CreateRequest{ResourceID: "reviewed", StartTime: start, EndTime: end})
	assert.NoError(t, err)
}

func TestApproveThenCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.book(t, alice, "reviewed", 10, 12)
	assert.Equal(t, StatusPending, b.Status)
	assert.Nil(t, b.DecidedBy)
	assert.Nil(t, b.DecidedAt)

	for _, p := range []auth.Principal{alice, bob, outsider} {
		_, err := f.svc.Approve(ctx, p, b.ID, "")
		assert.ErrorIs(t, err, ErrPermissionDenied, p.UserID)
	}
	assert.Equal(t, StatusPending, f.repo.status(b.ID))

	approved, err := f.svc.Approve(ctx, admin, b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.DecidedBy)
	assert.Equal(t, "admin", *approved.DecidedBy)
	assert.Equal(t, f.clock.Now(), *approved.DecidedAt)

	ev := f.notifier.last()
	assert.Equal(t, notification.Event{
		RecipientID:  "alice",
		Kind:         notification.KindApproved,
		BookingID:    b.ID,
		ResourceName: "Cluster",
		WindowStart:  b.StartTime,
		WindowEnd:    b.EndTime,
	}, ev)

	_, err = f.svc.Approve(ctx, admin, b.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.Reject(ctx, admin, b.ID, "too late")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusApproved, f.repo.status(b.ID))

	_, err = f.svc.Cancel(ctx, admin, b.ID, " ")
	assert.ErrorIs(t, err, ErrRemarksRequired)

	f.clock.Set(f.clock.Now().Add(time.Hour))
	cancelled, err := f.svc.Cancel(ctx, admin, b.ID, "instrument broke")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, "instrument broke", cancelled.Remarks)
	// Decision fields only change when leaving pending.
	assert.Equal(t, "admin", *cancelled.DecidedBy)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *cancelled.DecidedAt)

	ev = f.notifier.last()
	assert.Equal(t, notification.KindCancelled, ev.Kind)
	assert.Equal(t, "alice", ev.RecipientID)
	assert.Equal(t, "instrument broke", ev.Remarks)
	assert.Equal(t, 2, f.notifier.count())

	_, err = f.svc.Cancel(ctx, alice, b.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, alice, "reviewed", 10, 12)

	_, err := f.svc.Reject(ctx, admin, b.ID, "   ")
	assert.ErrorIs(t, err, ErrRemarksRequired)
	assert.Equal(t, StatusPending, f.repo.status(b.ID))
	assert.Zero(t, f.notifier.count())

	rejected, err := f.svc.Reject(ctx, root, b.ID, "calendar freeze")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "root", *rejected.DecidedBy)

	ev := f.notifier.last()
	assert.Equal(t, notification.KindRejected, ev.Kind)
	assert.Equal(t, "calendar freeze", ev.Remarks)

	// Terminal: nothing else is allowed.
	_, err = f.svc.Approve(ctx, admin, b.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.Cancel(ctx, admin, b.ID, "x")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// The rejected window is free again.
	f.book(t, bob, "reviewed", 10, 12)
}

func TestOwnerCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, alice, "reviewed", 13, 15)

	_, err := f.svc.Cancel(ctx, bob, b.ID, "mine now")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	cancelled, err := f.svc.Cancel(ctx, alice, b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, "alice", *cancelled.DecidedBy)
	assert.Empty(t, cancelled.Remarks)
	assert.Equal(t, notification.KindCancelled, f.notifier.last().Kind)
}

func TestNotifierFailureIsNotPropagated(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")
	b := f.book(t, alice, "reviewed", 10, 11)

	approved, err := f.svc.Approve(context.Background(), admin, b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, 1, f.notifier.count())
}

func TestGetByIDVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, alice, "instant", 10, 11)

	for _, p := range []auth.Principal{alice, admin, root} {
		_, err := f.svc.GetByID(ctx, p, b.ID)
		assert.NoError(t, err, p.UserID)
	}
	for _, p := range []auth.Principal{bob, outsider} {
		_, err := f.svc.GetByID(ctx, p, b.ID)
		assert.ErrorIs(t, err, ErrPermissionDenied, p.UserID)
	}
	_, err := f.svc.GetByID(ctx, alice, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, alice, "instant", 9, 10)
	f.book(t, bob, "instant", 10, 11)

	list, total, err := f.svc.List(ctx, alice, Filter{UserID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "alice", list[0].UserID)

	_, total, err = f.svc.List(ctx, admin, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	_, total, err = f.svc.List(ctx, outsider, Filter{})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, total, err = f.svc.List(ctx, root, Filter{UserID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestGridReflectsBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, alice, "reviewed", 10, 11)
	f.book(t, bob, "reviewed", 11, 12)
	approved := f.book(t, bob, "reviewed", 12, 13)
	_, err := f.svc.Approve(ctx, admin, approved.ID, "")
	require.NoError(t, err)

	g, err := f.svc.Grid(ctx, alice, "reviewed", monday, 0)
	require.NoError(t, err)
	assert.Equal(t, availability.DefaultDays, g.Days)

	state := func(hour int) availability.State {
		c, ok := g.At(monday.WithHour(hour))
		require.True(t, ok)
		return c.State
	}
	assert.Equal(t, availability.StateAvailable, state(9))
	assert.Equal(t, availability.StateBookedPendingMine, state(10))
	assert.Equal(t, availability.StateBookedPendingOther, state(11))
	assert.Equal(t, availability.StateBookedApproved, state(12))

	_, err = f.svc.Grid(ctx, alice, "reviewed", monday, MaxGridDays+1)
	assert.ErrorIs(t, err, ErrInvalidGridRange)

	g, err = f.svc.Grid(ctx, alice, "unconfigured", monday, 3)
	require.NoError(t, err)
	assert.False(t, g.Configured)

	// Defaults to today in the display zone.
	g, err = f.svc.Grid(ctx, alice, "instant", timeslot.Key{}, 1)
	require.NoError(t, err)
	assert.Equal(t, timeslot.NewKey(2026, time.January, 1, 0), g.From)
}

func TestSelect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, bob, "instant", 12, 13)

	s, err := f.svc.Select(ctx, alice, "instant", monday, 1, []timeslot.Key{monday.WithHour(14), monday.WithHour(10)})
	require.NoError(t, err)
	assert.Equal(t, selection.Ranged, s.Phase())
	assert.Equal(t, 5, s.Duration())
	assert.Equal(t, []timeslot.Key{monday.WithHour(10), monday.WithHour(11), monday.WithHour(13), monday.WithHour(14)}, s.Selected())

	// The advisory selection spans a booked cell; admission still refuses it.
	start, end, ok := s.Window(ist)
	require.True(t, ok)
	_, err = f.svc.Create(ctx, alice, CreateRequest{ResourceID: "instant", StartTime: start, EndTime: end})
	assert.ErrorIs(t, err, ErrDurationExceeded)
	_, err = f.svc.Create(ctx, alice, CreateRequest{ResourceID: "instant", StartTime: start, EndTime: start.Add(4 * time.Hour)})
	assert.ErrorIs(t, err, ErrTimeConflict)
}

func TestCompleteAndArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	done := f.book(t, alice, "instant", 10, 12)
	pending := f.book(t, alice, "reviewed", 10, 12)
	cancelled := f.book(t, bob, "reviewed", 13, 14)
	_, err := f.svc.Cancel(ctx, bob, cancelled.ID, "")
	require.NoError(t, err)

	f.clock.Set(ist.ToAbsolute(monday.WithHour(12)))

	n, err := f.svc.CompleteEnded(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, StatusCompleted, f.repo.status(done.ID))
	assert.Equal(t, StatusPending, f.repo.status(pending.ID), "pending bookings are never completed")

	// The cancelled booking ends at 14:00 and is not yet archivable.
	n, err = f.svc.ArchivePast(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	list, _, err := f.svc.List(ctx, alice, Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, _, err = f.svc.List(ctx, alice, Filter{IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// An undecided booking is archived without a status change.
	got, err := f.repo.GetByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.NotNil(t, got.ArchivedAt)
}

func TestApproveAfterWindowStarted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, alice, "reviewed", 10, 12)

	f.clock.Set(b.StartTime)
	_, err := f.svc.Approve(ctx, admin, b.ID, "")
	assert.ErrorIs(t, err, ErrWindowStarted)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, StatusPending, f.repo.status(b.ID))

	f.clock.Set(b.EndTime.Add(7 * 24 * time.Hour))
	n, err := f.svc.CompleteEnded(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = f.svc.ArchivePast(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = f.svc.Approve(ctx, admin, b.ID, "")
	assert.ErrorIs(t, err, ErrWindowStarted)
	got, err := f.repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.NotNil(t, got.ArchivedAt)
	assert.Zero(t, f.notifier.count())

	// Rejecting a stale request is still allowed.
	_, err = f.svc.Reject(ctx, admin, b.ID, "missed")
	require.NoError(t, err)
}

func TestIllegalTransitionBeforeRemarks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, alice, "instant", 10, 12)
	require.Equal(t, StatusApproved, b.Status)

	_, err := f.svc.Reject(ctx, admin, b.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.Cancel(ctx, alice, b.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, admin, b.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOwnerCancelNotifiesApprover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.book(t, alice, "reviewed", 10, 12)
	_, err := f.svc.Approve(ctx, admin, b.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, alice, b.ID, "plans changed")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "alice", "admin"}, f.notifier.recipients())
	assert.Equal(t, notification.KindCancelled, f.notifier.last().Kind)

	// Auto-approved bookings have no separate approver.
	own := f.book(t, bob, "instant", 13, 14)
	_, err = f.svc.Cancel(ctx, bob, own.ID, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "alice", "admin", "bob"}, f.notifier.recipients())
}

func TestNotifyOutlivesRequestContext(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, alice, "reviewed", 10, 12)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.Approve(ctx, admin, b.ID, "")
	require.NoError(t, err)

	require.Len(t, f.notifier.ctxErrs, 1)
	assert.NoError(t, f.notifier.ctxErrs[0])
}
