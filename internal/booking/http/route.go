package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers booking routes and the per-resource grid endpoints.
// createLimit throttles booking creation; pass nil to disable it.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, createLimit gin.HandlerFunc) {
	group := g.Group("/bookings")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		if createLimit != nil {
			group.POST("", createLimit, h.Create)
		} else {
			group.POST("", h.Create)
		}
		group.POST("/:id/approve", h.decide(approve))
		group.POST("/:id/reject", h.decide(reject))
		group.POST("/:id/cancel", h.decide(cancel))
	}

	resources := g.Group("/resources", authMiddleware)
	{
		resources.GET("/:id/grid", h.Grid)
		resources.POST("/:id/selection", h.Select)
	}
}
