package admin

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/logifywp/logify/internal/apperror"
)

// Handler handles HTTP requests for the dashboard query surface. Handlers
// are thin: bind request, call service, render response. No business logic
// lives here.
type Handler struct {
	service Service
}

// NewHandler creates a new admin handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Search serves the activity table (POST /api/v1/events/search). The body
// is the Filter shape; malformed filter values degrade to defaults inside
// the service, so the only hard failure is an unreadable body.
func (h *Handler) Search(c echo.Context) error {
	var f Filter
	if err := c.Bind(&f); err != nil {
		return apperror.NewBadRequest("invalid search request body")
	}

	resp, err := h.service.Search(c.Request().Context(), f)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// Details serves the expandable details panel for one event
// (GET /api/v1/events/:id).
func (h *Handler) Details(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperror.NewBadRequest("invalid event id")
	}

	bundle, err := h.service.Details(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, bundle)
}
