package http

import (
	"time"

	"github.com/nekogravitycat/reservation-backend/internal/auth"
	"github.com/nekogravitycat/reservation-backend/internal/user"
)

// UserResponse is the shape of user data returned in API responses.
type UserResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"display_name"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at"`
	IsSystemAdmin bool       `json:"is_system_admin"`
}

// NewUserResponse converts domain user.User to UserResponse used by the API.
func NewUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		CreatedAt:     u.CreatedAt,
		LastLoginAt:   u.LastLoginAt,
		IsSystemAdmin: u.IsSystemAdmin,
	}
}

// RegisterRequest defines the payload for user registration.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
}

// LoginRequest defines the payload for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// PrincipalResponse exposes the role and scope the token was issued with.
type PrincipalResponse struct {
	Role    auth.Role `json:"role"`
	ScopeID string    `json:"scope_id,omitempty"`
}

// LoginResponse returns the token and user info.
type LoginResponse struct {
	AccessToken string            `json:"access_token"`
	User        UserResponse      `json:"user"`
	Principal   PrincipalResponse `json:"principal"`
}

// MeResponse returns the current user info.
type MeResponse struct {
	User      UserResponse       `json:"user"`
	Principal *PrincipalResponse `json:"principal,omitempty"`
}
