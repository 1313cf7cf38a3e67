package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/logifywp/logify/internal/apperror"
	"github.com/logifywp/logify/internal/event"
	"github.com/logifywp/logify/internal/normalize"
	"github.com/logifywp/logify/internal/subject"
)

// whenLayout is how occurrence times render in the activity table.
const whenLayout = "2006-01-02 15:04:05"

// Resolver is the subset of subject resolution the service needs for
// rendering. Implemented by *subject.Registry.
type Resolver interface {
	Exists(ctx context.Context, ref subject.Reference) bool
	DisplayTag(ctx context.Context, ref subject.Reference) subject.DisplayTag
}

// Service assembles search responses and detail bundles for the dashboard.
type Service interface {
	// Search runs the filtered, paged query and renders one summary row
	// per event on the page. A row whose event vanished between the id
	// query and the load (retention sweep, manual delete) is skipped, not
	// an error -- the UI shows a partial page rather than failing.
	Search(ctx context.Context, f Filter) (*SearchResponse, error)

	// Details returns the full property/metadata/subject view of one
	// event. Returns a not-found error when the id does not exist.
	Details(ctx context.Context, id int64) (*DetailsBundle, error)
}

// service implements Service.
type service struct {
	search   Repository
	events   event.Repository
	resolver Resolver
	loc      *time.Location
}

// NewService creates the admin query service.
func NewService(search Repository, events event.Repository, resolver Resolver, loc *time.Location) Service {
	if loc == nil {
		loc = time.UTC
	}
	return &service{search: search, events: events, resolver: resolver, loc: loc}
}

func (s *service) Search(ctx context.Context, f Filter) (*SearchResponse, error) {
	f.applyDefaults()

	total, filtered, ids, err := s.search.Search(ctx, f)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("searching events: %w", err))
	}

	data := make([]SummaryRow, 0, len(ids))
	for _, id := range ids {
		e, err := s.events.Load(ctx, id)
		if err != nil {
			slog.Error("failed to load event for summary row",
				slog.Int64("event_id", id), slog.Any("error", err))
			continue
		}
		if e == nil {
			continue
		}
		data = append(data, s.summaryRow(ctx, e))
	}

	return &SearchResponse{
		Draw:            f.Draw,
		RecordsTotal:    total,
		RecordsFiltered: filtered,
		Data:            data,
	}, nil
}

func (s *service) Details(ctx context.Context, id int64) (*DetailsBundle, error) {
	e, err := s.events.Load(ctx, id)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("loading event %d: %w", id, err))
	}
	if e == nil {
		return nil, apperror.NewNotFound("event not found")
	}

	bundle := &DetailsBundle{
		ID:         e.ID,
		When:       e.OccurredAt.In(s.loc).Format(whenLayout),
		Actor:      actorDisplay(e),
		ActorRole:  e.ActorRoles,
		ActorIP:    e.ActorIP,
		ActorAgent: e.ActorAgent,
		Location:   e.ActorLocation,
		EventType:  e.EventType,
		Properties: []PropertyView{},
		Metadata:   []MetadataView{},
	}

	if e.HasSubject() {
		ref := e.Ref()
		bundle.Subject = &SubjectState{
			Exists: s.resolver.Exists(ctx, ref),
			Tag:    s.resolver.DisplayTag(ctx, ref),
		}
	}

	if e.Properties != nil {
		for _, p := range e.Properties.All() {
			bundle.Properties = append(bundle.Properties, propertyView(p))
		}
	}
	if e.Metadata != nil {
		for _, m := range e.Metadata.All() {
			bundle.Metadata = append(bundle.Metadata, MetadataView{Key: m.Key, Value: displayable(m.Value)})
		}
	}

	return bundle, nil
}

// summaryRow renders the short tabular line for one event.
func (s *service) summaryRow(ctx context.Context, e *event.Event) SummaryRow {
	row := SummaryRow{
		ID:        e.ID,
		When:      e.OccurredAt.In(s.loc).Format(whenLayout),
		Actor:     actorDisplay(e),
		ActorRole: e.ActorRoles,
		EventType: e.EventType,
	}
	if e.HasSubject() {
		row.Object = s.resolver.DisplayTag(ctx, e.Ref())
	}
	return row
}

// propertyView prepares one property for display. Composite changed pairs
// are reduced to the sub-fields that actually differ; the stored values
// stay untouched.
func propertyView(p *event.Property) PropertyView {
	view := PropertyView{
		Key:     p.Key,
		Source:  p.Source,
		Value:   displayable(p.Value),
		Changed: p.NewValue != nil,
	}
	if p.NewValue == nil {
		return view
	}

	oldReduced, newReduced, changed := normalize.Diff(p.Value, p.NewValue)
	if changed {
		view.Value = displayable(oldReduced)
		view.NewValue = displayable(newReduced)
	} else {
		// The pair was recorded as a change but diffs empty (e.g. nested
		// keys all equal); present it as current-value-only.
		view.Changed = false
	}
	return view
}

// actorDisplay renders the actor cell: the snapshot name, or a stand-in
// for anonymous actions.
func actorDisplay(e *event.Event) string {
	if e.ActorName != "" {
		return e.ActorName
	}
	if e.ActorID == 0 {
		return "Anonymous"
	}
	return fmt.Sprintf("User %d", e.ActorID)
}

// displayable converts canonical values into JSON-friendly display forms:
// timestamps become formatted strings, everything else passes through.
func displayable(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.Format(whenLayout)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = displayable(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = displayable(inner)
		}
		return out
	default:
		return v
	}
}
