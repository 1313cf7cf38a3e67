// Package admin serves the host dashboard's activity table: a DataTables-
// style search endpoint over the events table plus an on-demand details
// view per event. The filter engine translates multi-dimensional filter
// input into bound-parameter SQL with a deterministic two-phase
// (filtered-count, then paged-fetch) result.
package admin

import (
	"github.com/logifywp/logify/internal/subject"
)

// Filter is the search input shape posted by the dashboard table. Every
// field is optional; malformed values degrade to sane defaults rather than
// failing the request.
type Filter struct {
	// Draw is the DataTables request counter, echoed back unchanged.
	Draw int `json:"draw"`

	// Search is a free-text substring matched case-insensitively against
	// the event's textual columns, OR across columns.
	Search string `json:"search,omitempty"`

	// ObjectTypes selects which subject kinds to show. Nil means the
	// filter is inactive; an explicitly empty list means "no object type"
	// (typeless events only), never "everything".
	ObjectTypes *[]string `json:"objectTypes,omitempty"`

	// PostType narrows the "post" object type to one post subtype.
	PostType string `json:"postType,omitempty"`

	// Taxonomy narrows the "term" object type to one taxonomy.
	Taxonomy string `json:"taxonomy,omitempty"`

	// DateFrom / DateTo bound the occurrence date, "2006-01-02", both
	// inclusive. Interpreted in the site's zone.
	DateFrom string `json:"dateFrom,omitempty"`
	DateTo   string `json:"dateTo,omitempty"`

	// EventType filters to one exact event type string.
	EventType string `json:"eventType,omitempty"`

	// UserID filters to one actor. Zero means inactive.
	UserID int64 `json:"userId,omitempty"`

	// Role filters to actors holding the given role.
	Role string `json:"role,omitempty"`

	// SortColumn / SortDir order the result. Unknown columns and
	// directions fall back to occurred_at descending.
	SortColumn string `json:"sortColumn,omitempty"`
	SortDir    string `json:"sortDir,omitempty"`

	// Start / Length page the result. Negative start clamps to zero;
	// non-positive length gets a default.
	Start  int `json:"start"`
	Length int `json:"length"`
}

// SummaryRow is one pre-rendered line of the activity table.
type SummaryRow struct {
	ID        int64              `json:"id"`
	When      string             `json:"when"`
	Actor     string             `json:"actor"`
	ActorRole string             `json:"actorRole"`
	EventType string             `json:"eventType"`
	Object    subject.DisplayTag `json:"object"`
}

// SearchResponse is the DataTables-shaped reply.
type SearchResponse struct {
	Draw            int          `json:"draw"`
	RecordsTotal    int          `json:"recordsTotal"`
	RecordsFiltered int          `json:"recordsFiltered"`
	Data            []SummaryRow `json:"data"`
}

// PropertyView is one property prepared for the details panel. For
// composite values the displayed pair is reduced to the sub-fields that
// actually differ.
type PropertyView struct {
	Key      string `json:"key"`
	Source   string `json:"source,omitempty"`
	Value    any    `json:"value"`
	NewValue any    `json:"newValue,omitempty"`
	Changed  bool   `json:"changed"`
}

// MetadataView is one metadata entry prepared for the details panel.
type MetadataView struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// SubjectState is the resolution state of the event's subject at view time.
type SubjectState struct {
	Exists bool               `json:"exists"`
	Tag    subject.DisplayTag `json:"tag"`
}

// DetailsBundle is the on-demand full view of one event.
type DetailsBundle struct {
	ID         int64          `json:"id"`
	When       string         `json:"when"`
	Actor      string         `json:"actor"`
	ActorRole  string         `json:"actorRole"`
	ActorIP    string         `json:"actorIp"`
	ActorAgent string         `json:"actorAgent,omitempty"`
	Location   string         `json:"location,omitempty"`
	EventType  string         `json:"eventType"`
	Subject    *SubjectState  `json:"subject,omitempty"`
	Properties []PropertyView `json:"properties"`
	Metadata   []MetadataView `json:"metadata"`
}
