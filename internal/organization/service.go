package organization

import (
	"context"
	"strings"

	"github.com/nekogravitycat/reservation-backend/internal/auth"
)

// Service defines business logic for organizations.
type Service interface {
	Create(ctx context.Context, p auth.Principal, name string) (*Organization, error)
	GetByID(ctx context.Context, id string) (*Organization, error)
	List(ctx context.Context, filter Filter) ([]*Organization, int, error)
	Delete(ctx context.Context, p auth.Principal, id string) error

	AddMember(ctx context.Context, p auth.Principal, orgID, userID string, role Role) error
	RemoveMember(ctx context.Context, p auth.Principal, orgID, userID string) error
	ListMembers(ctx context.Context, p auth.Principal, orgID string, filter Filter) ([]*Member, int, error)

	// ManagedScope returns the organization userID administers, or "" if none.
	ManagedScope(ctx context.Context, userID string) (string, error)
}

type service struct {
	repo Repository
}

// NewService creates a new organization service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, p auth.Principal, name string) (*Organization, error) {
	if !p.IsSystemAdmin() {
		return nil, ErrPermissionDenied
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	org := &Organization{Name: name}
	if err := s.repo.Create(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Organization, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Organization, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Delete(ctx context.Context, p auth.Principal, id string) error {
	if !p.IsSystemAdmin() {
		return ErrPermissionDenied
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) AddMember(ctx context.Context, p auth.Principal, orgID, userID string, role Role) error {
	if !p.IsSystemAdmin() {
		return ErrPermissionDenied
	}
	role = Role(strings.ToLower(strings.TrimSpace(string(role))))
	if !role.Valid() {
		return ErrInvalidRole
	}

	// Verify organization exists
	if _, err := s.repo.GetByID(ctx, orgID); err != nil {
		return err
	}

	// An admin principal carries a single scope, so a user may manage at most one organization.
	// The unique index on managing memberships settles concurrent adds.
	if role.Manages() {
		managed, err := s.repo.ManagedBy(ctx, userID)
		if err != nil {
			return err
		}
		for _, id := range managed {
			if id != orgID {
				return ErrManagesOther
			}
		}
	}

	return s.repo.AddMember(ctx, orgID, userID, role)
}

func (s *service) RemoveMember(ctx context.Context, p auth.Principal, orgID, userID string) error {
	if !p.IsSystemAdmin() {
		return ErrPermissionDenied
	}
	return s.repo.RemoveMember(ctx, orgID, userID)
}

func (s *service) ListMembers(ctx context.Context, p auth.Principal, orgID string, filter Filter) ([]*Member, int, error) {
	if !p.Manages(orgID) {
		return nil, 0, ErrPermissionDenied
	}
	if _, err := s.repo.GetByID(ctx, orgID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListMembers(ctx, orgID, filter)
}

func (s *service) ManagedScope(ctx context.Context, userID string) (string, error) {
	managed, err := s.repo.ManagedBy(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(managed) == 0 {
		return "", nil
	}
	return managed[0], nil
}
