package organization

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/reservation-backend/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, apperror.KindNotFound, "organization not found")
	ErrNameRequired      = apperror.New(http.StatusBadRequest, apperror.KindValidation, "organization name is required")
	ErrInvalidRole       = apperror.New(http.StatusBadRequest, apperror.KindValidation, "role must be one of owner, admin, member")
	ErrUserNotFound      = apperror.New(http.StatusNotFound, apperror.KindNotFound, "user not found")
	ErrUserNotMember     = apperror.New(http.StatusNotFound, apperror.KindNotFound, "user is not a member of this organization")
	ErrUserAlreadyMember = apperror.New(http.StatusConflict, apperror.KindConflict, "user is already a member of this organization")
	ErrManagesOther      = apperror.New(http.StatusConflict, apperror.KindConflict, "user already manages another organization")
	ErrInUse             = apperror.New(http.StatusConflict, apperror.KindConflict, "organization still owns resources")
	ErrPermissionDenied  = apperror.New(http.StatusForbidden, apperror.KindAuthorization, "permission denied")
)

// Organization is the scope that owns resources and is administered by its owners and admins.
type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type Filter struct {
	Page     int
	PageSize int
}

type Role string

// Define roles matching the database enum
const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleMember
}

// Manages reports whether members with this role administer the organization.
func (r Role) Manages() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Member represents a user with a specific role within an organization.
type Member struct {
	UserID      string
	Email       string
	DisplayName string
	Role        Role
	CreatedAt   time.Time
}
