package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/reservation-backend/internal/auth"
)

// ScopeResolver finds the organization a user administers.
type ScopeResolver interface {
	ManagedScope(ctx context.Context, userID string) (string, error)
}

// Service defines business logic related to users.
type Service interface {
	Register(ctx context.Context, email, password, displayName string) (*User, error)
	// Login verifies the credentials and resolves the principal the access token will carry.
	Login(ctx context.Context, email, password string) (*User, auth.Principal, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// EmailOf returns "" for inactive users so they receive no mail.
	EmailOf(ctx context.Context, userID string) (string, error)
}

type service struct {
	repo   Repository
	hasher auth.PasswordHasher
	scopes ScopeResolver
	log    logrus.FieldLogger

	minPasswordLength int
}

// NewService creates a new user Service.
func NewService(repo Repository, hasher auth.PasswordHasher, scopes ScopeResolver, log logrus.FieldLogger) Service {
	return &service{
		repo:              repo,
		hasher:            hasher,
		scopes:            scopes,
		log:               log,
		minPasswordLength: 8,
	}
}

func (s *service) Register(ctx context.Context, email, password, displayName string) (*User, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" {
		return nil, ErrEmailRequired
	}
	if len(password) < s.minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	name := strings.TrimSpace(displayName)
	if name == "" {
		return nil, ErrNameRequired
	}

	// Check if email is already used.
	_, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err == nil {
		return nil, ErrEmailAlreadyUsed
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &User{
		Email:        cleanEmail,
		PasswordHash: hash,
		DisplayName:  name,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*User, auth.Principal, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" || strings.TrimSpace(password) == "" {
		return nil, auth.Principal{}, ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, auth.Principal{}, ErrInvalidCredentials
		}
		return nil, auth.Principal{}, fmt.Errorf("failed to fetch user by email: %w", err)
	}

	// For security reasons, do not reveal which condition failed
	if !u.IsActive {
		return nil, auth.Principal{}, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, auth.Principal{}, ErrInvalidCredentials
	}

	p, err := s.principalOf(ctx, u)
	if err != nil {
		return nil, auth.Principal{}, err
	}

	// Best effort, a failed update does not fail the login.
	now := time.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, u.ID, now); err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Warn("update last login failed")
	} else {
		u.LastLoginAt = &now
	}

	return u, p, nil
}

func (s *service) principalOf(ctx context.Context, u *User) (auth.Principal, error) {
	if u.IsSystemAdmin {
		return auth.Principal{UserID: u.ID, Role: auth.RoleSystemAdmin}, nil
	}
	if s.scopes != nil {
		scope, err := s.scopes.ManagedScope(ctx, u.ID)
		if err != nil {
			return auth.Principal{}, fmt.Errorf("failed to resolve managed scope: %w", err)
		}
		if scope != "" {
			return auth.Principal{UserID: u.ID, Role: auth.RoleAdmin, ScopeID: scope}, nil
		}
	}
	return auth.Principal{UserID: u.ID, Role: auth.RoleUser}, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) EmailOf(ctx context.Context, userID string) (string, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !u.IsActive {
		return "", nil
	}
	return u.Email, nil
}

// normalizeEmail trims spaces and lowercases the email.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
