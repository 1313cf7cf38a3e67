package app

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/logifywp/logify/internal/admin"
	"github.com/logifywp/logify/internal/event"
	"github.com/logifywp/logify/internal/ingest"
	"github.com/logifywp/logify/internal/middleware"
	"github.com/logifywp/logify/internal/retention"
	"github.com/logifywp/logify/internal/subject"
	"github.com/logifywp/logify/internal/tracker"
)

// RegisterRoutes constructs every service and wires the HTTP surface:
// observation intake and the dashboard query API, both behind API-key auth
// and rate limiting, plus an unauthenticated health check.
func (a *App) RegisterRoutes() {
	// --- Shared domain services ---
	events := event.NewRepository(a.DB)
	resolvers := subject.NewDefaultRegistry(a.DB, a.Config.BaseURL, subject.DefaultTables())
	aggregator := tracker.NewService(events, a.Redis, a.Config.Tracking)

	searchRepo := admin.NewRepository(a.DB, a.Config.Tracking.Location)
	adminSvc := admin.NewService(searchRepo, events, resolvers, a.Config.Tracking.Location)

	a.Retention = retention.NewService(events, a.Redis, a.Config.Tracking)

	// --- Health check (unauthenticated, used by orchestrator probes) ---
	a.Echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- API group: bearer key auth + per-IP rate limit ---
	api := a.Echo.Group("/api/v1",
		middleware.APIKey(a.Config.API.KeyHash),
		middleware.RateLimit(a.Config.API.RateLimit, time.Minute),
	)

	ingest.RegisterRoutes(api, ingest.NewHandler(aggregator))
	admin.RegisterRoutes(api, admin.NewHandler(adminSvc))
}
