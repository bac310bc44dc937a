package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/reservation-backend/internal/auth"
	"github.com/nekogravitycat/reservation-backend/internal/availability"
	"github.com/nekogravitycat/reservation-backend/internal/notification"
	"github.com/nekogravitycat/reservation-backend/internal/resource"
	"github.com/nekogravitycat/reservation-backend/internal/selection"
	"github.com/nekogravitycat/reservation-backend/internal/timeslot"
)

// MaxGridDays bounds a single grid request.
const MaxGridDays = 62

type CreateRequest struct {
	ResourceID string
	Purpose    string
	StartTime  time.Time
	EndTime    time.Time
}

// ResourceReader is the part of the resource module bookings depend on.
type ResourceReader interface {
	GetByID(ctx context.Context, id string) (*resource.Resource, error)
	ListMaintenance(ctx context.Context, id string, from, to *time.Time) ([]availability.MaintenancePeriod, error)
}

// Notifier delivers lifecycle events. Its errors never fail a transition.
type Notifier interface {
	Notify(ctx context.Context, ev notification.Event) error
}

type Service interface {
	Create(ctx context.Context, p auth.Principal, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, p auth.Principal, id string) (*Booking, error)
	List(ctx context.Context, p auth.Principal, filter Filter) ([]*Booking, int, error)

	Approve(ctx context.Context, p auth.Principal, id, remarks string) (*Booking, error)
	Reject(ctx context.Context, p auth.Principal, id, remarks string) (*Booking, error)
	Cancel(ctx context.Context, p auth.Principal, id, remarks string) (*Booking, error)

	// CompleteEnded and ArchivePast are driven by the Sweeper.
	CompleteEnded(ctx context.Context) (int64, error)
	ArchivePast(ctx context.Context) (int64, error)

	Grid(ctx context.Context, p auth.Principal, resourceID string, from timeslot.Key, days int) (*availability.Grid, error)
	Select(ctx context.Context, p auth.Principal, resourceID string, from timeslot.Key, days int, clicks []timeslot.Key) (*selection.Selector, error)

	Boundary() timeslot.Boundary
}

type Config struct {
	Boundary timeslot.Boundary
	GridDays int
	Now      func() time.Time
}

type service struct {
	repo      Repository
	resources ResourceReader
	notifier  Notifier
	guard     Guard
	gridDays  int
	now       func() time.Time
	log       logrus.FieldLogger
}

func NewService(repo Repository, resources ResourceReader, notifier Notifier, log logrus.FieldLogger, cfg Config) Service {
	if cfg.GridDays <= 0 {
		cfg.GridDays = availability.DefaultDays
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &service{
		repo:      repo,
		resources: resources,
		notifier:  notifier,
		guard:     Guard{Boundary: cfg.Boundary},
		gridDays:  cfg.GridDays,
		now:       cfg.Now,
		log:       log.WithField("component", "booking"),
	}
}

func (s *service) Boundary() timeslot.Boundary {
	return s.guard.Boundary
}

func (s *service) resource(ctx context.Context, id string) (*resource.Resource, error) {
	res, err := s.resources.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}
	return res, nil
}

func (s *service) Create(ctx context.Context, p auth.Principal, req CreateRequest) (*Booking, error) {
	res, err := s.resource(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}

	start, end := req.StartTime.UTC(), req.EndTime.UTC()
	if err := s.guard.Check(start, end, res.MaxBookingHours); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if start.Before(now) {
		return nil, ErrStartTimePast
	}

	b := &Booking{
		ResourceID:     res.ID,
		ResourceName:   res.Name,
		OrganizationID: res.OrganizationID,
		UserID:         p.UserID,
		Purpose:        strings.TrimSpace(req.Purpose),
		StartTime:      start,
		EndTime:        end,
		Status:         InitialStatus(res.RequiresApproval),
	}
	if b.Status == StatusApproved {
		b.DecidedBy = &p.UserID
		b.DecidedAt = &now
	}

	err = s.repo.CreateIfFree(ctx, b)
	if errors.Is(err, ErrContention) {
		s.log.WithError(err).WithField("resource_id", b.ResourceID).Warn("booking admission contended, retrying once")
		err = s.repo.CreateIfFree(ctx, b)
		if errors.Is(err, ErrContention) {
			err = ErrTimeConflict
		}
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// visible reports whether p may read b.
func visible(p auth.Principal, b *Booking) bool {
	return b.UserID == p.UserID || p.Manages(b.OrganizationID)
}

func (s *service) GetByID(ctx context.Context, p auth.Principal, id string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(p, b) {
		return nil, ErrPermissionDenied
	}
	return b, nil
}

// List narrows filter to what p may see: users get their own bookings,
// scope admins their scope (or their own), system admins everything.
func (s *service) List(ctx context.Context, p auth.Principal, filter Filter) ([]*Booking, int, error) {
	switch {
	case p.IsSystemAdmin():
	case p.Role == auth.RoleAdmin && filter.UserID != p.UserID:
		filter.OrganizationID = p.ScopeID
	default:
		filter.UserID = p.UserID
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Approve(ctx context.Context, p auth.Principal, id, remarks string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Manages(b.OrganizationID) {
		return nil, ErrPermissionDenied
	}
	if err := s.legal(b, StatusApproved); err != nil {
		return nil, err
	}
	// Approving after the start would let the sweeper complete a booking that never took place.
	if !b.StartTime.After(s.now()) {
		return nil, ErrWindowStarted
	}
	return s.transition(ctx, p, b, StatusApproved, strings.TrimSpace(remarks))
}

func (s *service) Reject(ctx context.Context, p auth.Principal, id, remarks string) (*Booking, error) {
	remarks = strings.TrimSpace(remarks)
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Manages(b.OrganizationID) {
		return nil, ErrPermissionDenied
	}
	if err := s.legal(b, StatusRejected); err != nil {
		return nil, err
	}
	if remarks == "" {
		return nil, ErrRemarksRequired
	}
	return s.transition(ctx, p, b, StatusRejected, remarks)
}

func (s *service) Cancel(ctx context.Context, p auth.Principal, id, remarks string) (*Booking, error) {
	remarks = strings.TrimSpace(remarks)
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	owner := b.UserID == p.UserID
	if !owner && !p.Manages(b.OrganizationID) {
		return nil, ErrPermissionDenied
	}
	if err := s.legal(b, StatusCancelled); err != nil {
		return nil, err
	}
	// An admin cancelling someone else's booking has to say why.
	if !owner && remarks == "" {
		return nil, ErrRemarksRequired
	}
	return s.transition(ctx, p, b, StatusCancelled, remarks)
}

// legal checks the move against the transition table before any other validation.
func (s *service) legal(b *Booking, to Status) error {
	if !CanTransition(b.Status, to) {
		s.log.WithFields(logrus.Fields{"booking_id": b.ID, "from": b.Status, "to": to}).
			Error("rejected illegal booking transition")
		return ErrInvalidTransition
	}
	return nil
}

// transition applies one lifecycle move as a single conditional write, then notifies.
func (s *service) transition(ctx context.Context, p auth.Principal, b *Booking, to Status, remarks string) (*Booking, error) {
	log := s.log.WithFields(logrus.Fields{"booking_id": b.ID, "from": b.Status, "to": to})

	if err := s.legal(b, to); err != nil {
		return nil, err
	}

	u := StatusUpdate{From: b.Status, To: to}
	if remarks != "" {
		u.Remarks = &remarks
	}
	if b.Status == StatusPending {
		now := s.now().UTC()
		u.DecidedBy = &p.UserID
		u.DecidedAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, b.ID, u); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			log.Error("booking changed status concurrently")
		}
		return nil, err
	}

	b.Status = to
	if u.Remarks != nil {
		b.Remarks = remarks
	}
	if u.DecidedAt != nil {
		b.DecidedBy, b.DecidedAt = u.DecidedBy, u.DecidedAt
	}
	b.UpdatedAt = s.now().UTC()

	// The write has committed; a client hanging up must not lose the notification.
	s.notify(context.WithoutCancel(ctx), b, recipients(p, b))
	return b, nil
}

// recipients is the requester, plus the deciding admin when the requester
// withdraws a booking someone else approved.
func recipients(p auth.Principal, b *Booking) []string {
	out := []string{b.UserID}
	if b.Status == StatusCancelled && p.UserID == b.UserID &&
		b.DecidedBy != nil && *b.DecidedBy != b.UserID {
		out = append(out, *b.DecidedBy)
	}
	return out
}

func (s *service) notify(ctx context.Context, b *Booking, to []string) {
	kind, ok := eventKind(b.Status)
	if !ok || s.notifier == nil {
		return
	}
	for _, recipient := range to {
		ev := notification.Event{
			RecipientID:  recipient,
			Kind:         kind,
			BookingID:    b.ID,
			ResourceName: b.ResourceName,
			WindowStart:  b.StartTime,
			WindowEnd:    b.EndTime,
			Remarks:      b.Remarks,
		}
		if err := s.notifier.Notify(ctx, ev); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"booking_id":   b.ID,
				"recipient_id": recipient,
				"kind":         kind,
			}).Warn("booking notification failed")
		}
	}
}

func (s *service) CompleteEnded(ctx context.Context) (int64, error) {
	return s.repo.CompleteEnded(ctx, s.now().UTC())
}

func (s *service) ArchivePast(ctx context.Context) (int64, error) {
	return s.repo.ArchivePast(ctx, s.now().UTC())
}

func (s *service) Grid(ctx context.Context, p auth.Principal, resourceID string, from timeslot.Key, days int) (*availability.Grid, error) {
	if days == 0 {
		days = s.gridDays
	}
	if days < 0 || days > MaxGridDays {
		return nil, ErrInvalidGridRange.WithDetails(map[string]any{"max_days": MaxGridDays})
	}
	if from.IsZero() {
		from = s.guard.Boundary.Today(s.now())
	}

	res, err := s.resource(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	windowStart, windowEnd := s.guard.Boundary.DayWindow(from, days)

	var maintenance []availability.MaintenancePeriod
	if res.Availability != nil {
		maintenance, err = s.resources.ListMaintenance(ctx, res.ID, &windowStart, &windowEnd)
		if err != nil {
			return nil, err
		}
	}

	live, err := s.repo.ListLive(ctx, res.ID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	occupants := make([]availability.Occupant, 0, len(live))
	for _, b := range live {
		occupants = append(occupants, b.Occupant())
	}

	return availability.BuildGrid(s.guard.Boundary, availability.GridInput{
		Schedule:  res.Schedule(maintenance),
		Occupants: occupants,
		From:      from,
		Days:      days,
		ViewerID:  p.UserID,
	}), nil
}

func (s *service) Select(ctx context.Context, p auth.Principal, resourceID string, from timeslot.Key, days int, clicks []timeslot.Key) (*selection.Selector, error) {
	g, err := s.Grid(ctx, p, resourceID, from, days)
	if err != nil {
		return nil, err
	}
	return selection.Replay(g, clicks), nil
}
