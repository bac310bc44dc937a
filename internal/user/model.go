package user

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/reservation-backend/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, apperror.KindNotFound, "user not found")
	ErrEmailAlreadyUsed   = apperror.New(http.StatusConflict, apperror.KindConflict, "email already used")
	ErrInvalidCredentials = apperror.New(http.StatusUnauthorized, apperror.KindAuthorization, "invalid email or password")
	ErrEmailRequired      = apperror.New(http.StatusBadRequest, apperror.KindValidation, "email is required")
	ErrPasswordTooShort   = apperror.New(http.StatusBadRequest, apperror.KindValidation, "password is too short")
	ErrNameRequired       = apperror.New(http.StatusBadRequest, apperror.KindValidation, "display name is required")
)

// User represents a user in the system.
type User struct {
	ID            string // UUID
	Email         string
	PasswordHash  string
	DisplayName   string
	CreatedAt     time.Time
	LastLoginAt   *time.Time
	IsActive      bool
	IsSystemAdmin bool
}
