package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/reservation-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/organizations", authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.GET("/:id/members", h.ListMembers)
	}

	// === System Admin Routes ===
	admin := group.Group("", auth.RequireRole(auth.RoleSystemAdmin))
	{
		admin.POST("", h.Create)
		admin.DELETE("/:id", h.Delete)
		admin.POST("/:id/members", h.AddMember)
		admin.DELETE("/:id/members/:userId", h.RemoveMember)
	}
}
