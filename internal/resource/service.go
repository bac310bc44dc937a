package resource

import (
	"context"
	"strings"
	"time"

	"github.com/nekogravitycat/reservation-backend/internal/auth"
	"github.com/nekogravitycat/reservation-backend/internal/availability"
)

type CreateRequest struct {
	OrganizationID   string
	Name             string
	Description      string
	MaxBookingHours  int
	RequiresApproval bool
	Availability     []availability.Window
}

type UpdateRequest struct {
	Name             *string
	Description      *string
	MaxBookingHours  *int
	RequiresApproval *bool
}

type MaintenanceRequest struct {
	Start  time.Time
	End    time.Time
	Reason string
}

type Service interface {
	Create(ctx context.Context, p auth.Principal, req CreateRequest) (*Resource, error)
	GetByID(ctx context.Context, id string) (*Resource, error)
	List(ctx context.Context, filter Filter) ([]*Resource, int, error)
	Update(ctx context.Context, p auth.Principal, id string, req UpdateRequest) (*Resource, error)
	Delete(ctx context.Context, p auth.Principal, id string) error

	SetAvailability(ctx context.Context, p auth.Principal, id string, windows []availability.Window) (*Resource, error)
	ClearAvailability(ctx context.Context, p auth.Principal, id string) (*Resource, error)

	AddMaintenance(ctx context.Context, p auth.Principal, id string, req MaintenanceRequest) (*availability.MaintenancePeriod, error)
	ListMaintenance(ctx context.Context, id string, from, to *time.Time) ([]availability.MaintenancePeriod, error)
	RemoveMaintenance(ctx context.Context, p auth.Principal, id, maintenanceID string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// authorize loads the resource and checks that p manages its organization.
func (s *service) authorize(ctx context.Context, p auth.Principal, id string) (*Resource, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Manages(res.OrganizationID) {
		return nil, ErrPermissionDenied
	}
	return res, nil
}

func (s *service) Create(ctx context.Context, p auth.Principal, req CreateRequest) (*Resource, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if req.OrganizationID == "" {
		return nil, ErrInvalidOrganization
	}
	if req.MaxBookingHours <= 0 {
		return nil, ErrInvalidMaxDuration
	}
	if req.Availability != nil {
		if err := availability.ValidateWindows(req.Availability); err != nil {
			return nil, err
		}
	}
	if !p.Manages(req.OrganizationID) {
		return nil, ErrPermissionDenied
	}

	res := &Resource{
		OrganizationID:   req.OrganizationID,
		Name:             name,
		Description:      strings.TrimSpace(req.Description),
		MaxBookingHours:  req.MaxBookingHours,
		RequiresApproval: req.RequiresApproval,
		Availability:     req.Availability,
	}
	if err := s.repo.Create(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Resource, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Resource, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, p auth.Principal, id string, req UpdateRequest) (*Resource, error) {
	res, err := s.authorize(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		res.Name = name
	}
	if req.Description != nil {
		res.Description = strings.TrimSpace(*req.Description)
	}
	if req.MaxBookingHours != nil {
		// Existing bookings keep the limit they were admitted under.
		if *req.MaxBookingHours <= 0 {
			return nil, ErrInvalidMaxDuration
		}
		res.MaxBookingHours = *req.MaxBookingHours
	}
	if req.RequiresApproval != nil {
		res.RequiresApproval = *req.RequiresApproval
	}

	if err := s.repo.Update(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *service) Delete(ctx context.Context, p auth.Principal, id string) error {
	if _, err := s.authorize(ctx, p, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) SetAvailability(ctx context.Context, p auth.Principal, id string, windows []availability.Window) (*Resource, error) {
	if windows == nil {
		windows = []availability.Window{}
	}
	if err := availability.ValidateWindows(windows); err != nil {
		return nil, err
	}
	res, err := s.authorize(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetAvailability(ctx, id, windows); err != nil {
		return nil, err
	}
	res.Availability = windows
	return res, nil
}

func (s *service) ClearAvailability(ctx context.Context, p auth.Principal, id string) (*Resource, error) {
	res, err := s.authorize(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetAvailability(ctx, id, nil); err != nil {
		return nil, err
	}
	res.Availability = nil
	return res, nil
}

func (s *service) AddMaintenance(ctx context.Context, p auth.Principal, id string, req MaintenanceRequest) (*availability.MaintenancePeriod, error) {
	m := &availability.MaintenancePeriod{
		ResourceID: id,
		Start:      req.Start.UTC(),
		End:        req.End.UTC(),
		Reason:     req.Reason,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, p, id); err != nil {
		return nil, err
	}
	if err := s.repo.AddMaintenance(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *service) ListMaintenance(ctx context.Context, id string, from, to *time.Time) ([]availability.MaintenancePeriod, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListMaintenance(ctx, id, from, to)
}

func (s *service) RemoveMaintenance(ctx context.Context, p auth.Principal, id, maintenanceID string) error {
	if _, err := s.authorize(ctx, p, id); err != nil {
		return err
	}
	return s.repo.DeleteMaintenance(ctx, id, maintenanceID)
}
