package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nekogravitycat/reservation-backend/internal/availability"
	"github.com/nekogravitycat/reservation-backend/internal/notification"
	"github.com/nekogravitycat/reservation-backend/internal/resource"
)

// memRepo is an in-memory Repository. A single mutex makes CreateIfFree atomic.
type memRepo struct {
	mu         sync.Mutex
	bookings   map[string]*Booking
	seq        int
	contention int // number of upcoming CreateIfFree calls that fail with ErrContention
	creates    int
}

func newMemRepo() *memRepo {
	return &memRepo{bookings: map[string]*Booking{}}
}

func (m *memRepo) CreateIfFree(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creates++
	if m.contention > 0 {
		m.contention--
		return fmt.Errorf("%w: 40001", ErrContention)
	}
	for _, existing := range m.bookings {
		if existing.ResourceID == b.ResourceID && existing.Status.Live() &&
			Overlaps(existing.StartTime, existing.EndTime, b.StartTime, b.EndTime) {
			return ErrTimeConflict
		}
	}
	m.seq++
	b.ID = fmt.Sprintf("b-%d", m.seq)
	b.CreatedAt = time.Now()
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, f Filter) ([]*Booking, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Booking
	for _, b := range m.bookings {
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if f.OrganizationID != "" && b.OrganizationID != f.OrganizationID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if !f.IncludeArchived && b.ArchivedAt != nil {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memRepo) ListLive(_ context.Context, resourceID string, from, to time.Time) ([]*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Booking
	for _, b := range m.bookings {
		if b.ResourceID == resourceID && b.Status.Live() && Overlaps(b.StartTime, b.EndTime, from, to) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id string, u StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != u.From {
		return ErrInvalidTransition
	}
	b.Status = u.To
	if u.Remarks != nil {
		b.Remarks = *u.Remarks
	}
	if u.DecidedBy != nil {
		b.DecidedBy = u.DecidedBy
	}
	if u.DecidedAt != nil {
		b.DecidedAt = u.DecidedAt
	}
	return nil
}

func (m *memRepo) CompleteEnded(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, b := range m.bookings {
		if b.Status == StatusApproved && !b.EndTime.After(now) {
			b.Status = StatusCompleted
			n++
		}
	}
	return n, nil
}

func (m *memRepo) ArchivePast(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, b := range m.bookings {
		if b.Status != StatusApproved && b.ArchivedAt == nil && !b.EndTime.After(now) {
			at := now
			b.ArchivedAt = &at
			n++
		}
	}
	return n, nil
}

func (m *memRepo) status(id string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings[id].Status
}

type fakeResources struct {
	resources   map[string]*resource.Resource
	maintenance map[string][]availability.MaintenancePeriod
}

func (f *fakeResources) GetByID(_ context.Context, id string) (*resource.Resource, error) {
	res, ok := f.resources[id]
	if !ok {
		return nil, resource.ErrNotFound
	}
	return res, nil
}

func (f *fakeResources) ListMaintenance(_ context.Context, id string, _, _ *time.Time) ([]availability.MaintenancePeriod, error) {
	return f.maintenance[id], nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	events  []notification.Event
	ctxErrs []error
	err     error
}

func (n *recordingNotifier) Notify(ctx context.Context, ev notification.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	n.ctxErrs = append(n.ctxErrs, ctx.Err())
	return n.err
}

func (n *recordingNotifier) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, ev := range n.events {
		out[i] = ev.RecipientID
	}
	return out
}

func (n *recordingNotifier) last() notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}
