// Package ingest is the observation intake surface. The host site batches
// all "something changed" callbacks from one of its requests into a single
// track call: the handler replays them through the aggregator in order and
// finalizes, so one host request maps to exactly one unit of work here.
package ingest

import (
	"github.com/logifywp/logify/internal/tracker"
)

// TrackRequest carries one host unit of work: the acting principal plus
// the ordered observations its request produced.
type TrackRequest struct {
	// Actor is the acting principal. A zero ID means anonymous.
	Actor tracker.Actor `json:"actor"`

	// Observations are replayed in order. For before/after comparisons
	// the host must have captured the "before" observation ahead of the
	// mutation and the "after" one behind it, in that order, within the
	// same request -- that ordering is this API's contract, not something
	// the aggregator can reconstruct.
	Observations []tracker.Observation `json:"observations"`
}

// SlotResult reports the finalization outcome for one slot.
type SlotResult struct {
	Slot    string `json:"slot"`
	EventID int64  `json:"eventId,omitempty"`
	Saved   bool   `json:"saved"`
	Deleted bool   `json:"deleted,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TrackResponse is the reply to a track call. Persistence failures appear
// per slot; the call itself still succeeds, because a failed audit write
// must never fail the host's primary operation.
type TrackResponse struct {
	RequestID string       `json:"requestId,omitempty"`
	Results   []SlotResult `json:"results"`
}
