package ingest

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/logifywp/logify/internal/apperror"
	"github.com/logifywp/logify/internal/middleware"
	"github.com/logifywp/logify/internal/tracker"
)

// Handler handles HTTP requests for observation intake.
type Handler struct {
	aggregator *tracker.Service
}

// NewHandler creates a new ingest handler.
func NewHandler(aggregator *tracker.Service) *Handler {
	return &Handler{aggregator: aggregator}
}

// Track ingests one host unit of work (POST /api/v1/track): build the unit
// of work, replay the observations through the aggregator, finalize, and
// report per-slot outcomes.
func (h *Handler) Track(c echo.Context) error {
	var req TrackRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid track request body")
	}
	if len(req.Observations) == 0 {
		return apperror.NewValidation("at least one observation is required")
	}
	for i, obs := range req.Observations {
		if obs.Slot == "" || obs.EventType == "" {
			return apperror.NewValidation(
				fmt.Sprintf("observation %d: slot and eventType are required", i))
		}
	}

	// The host may omit the client address; fall back to the connection's.
	if req.Actor.IP == "" {
		req.Actor.IP = c.RealIP()
	}

	uow := tracker.NewUnitOfWork(req.Actor)
	for _, obs := range req.Observations {
		h.aggregator.Observe(uow, obs)
	}

	outcomes := h.aggregator.Finalize(c.Request().Context(), uow)

	resp := TrackResponse{
		RequestID: middleware.RequestID(c),
		Results:   make([]SlotResult, 0, len(outcomes)),
	}
	for _, out := range outcomes {
		result := SlotResult{
			Slot:    out.Slot,
			EventID: out.EventID,
			Saved:   out.Saved,
			Deleted: out.Deleted,
		}
		if out.Err != nil {
			result.Error = "event could not be persisted"
		}
		resp.Results = append(resp.Results, result)
	}

	return c.JSON(http.StatusOK, resp)
}
