package http

import (
	"time"

	"github.com/nekogravitycat/reservation-backend/internal/organization"
	"github.com/nekogravitycat/reservation-backend/internal/pkg/request"
)

type ListOrganizationsRequest struct {
	request.ListParams
}

type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Role   string `json:"role" binding:"required,oneof=owner admin member"`
}

type MemberURI struct {
	ID     string `uri:"id" binding:"required,uuid"`
	UserID string `uri:"userId" binding:"required,uuid"`
}

type OrganizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func NewOrganizationResponse(o *organization.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:        o.ID,
		Name:      o.Name,
		CreatedAt: o.CreatedAt,
	}
}

type MemberResponse struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

func NewMemberResponse(m *organization.Member) MemberResponse {
	return MemberResponse{
		UserID:      m.UserID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		Role:        string(m.Role),
		JoinedAt:    m.CreatedAt,
	}
}
