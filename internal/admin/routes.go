package admin

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the dashboard query routes on the given group.
// The group is expected to already carry API-key auth and rate limiting.
func RegisterRoutes(g *echo.Group, h *Handler) {
	g.POST("/events/search", h.Search)
	g.GET("/events/:id", h.Details)
}
