package http

import (
	"github.com/nekogravitycat/reservation-backend/internal/pkg/request"
)

type ListNotificationsRequest struct {
	request.ListParams
	UnreadOnly bool `form:"unread_only"`
}
