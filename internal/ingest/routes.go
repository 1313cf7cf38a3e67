package ingest

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the intake routes on the given group. The group
// is expected to already carry API-key auth and rate limiting.
func RegisterRoutes(g *echo.Group, h *Handler) {
	g.POST("/track", h.Track)
}
