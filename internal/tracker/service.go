package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/logifywp/logify/internal/config"
	"github.com/logifywp/logify/internal/event"
	"github.com/logifywp/logify/internal/normalize"
)

// Metadata keys used by the time-windowed coalescing rule.
const (
	// MetaSessionStart is when a coalesced activity window opened.
	MetaSessionStart = "session_start"

	// MetaSessionEnd is the window's latest activity time; amending an
	// existing row extends this.
	MetaSessionEnd = "session_end"
)

// coalesceLockTTL bounds how long a coalescing lock can outlive its request.
const coalesceLockTTL = 10 * time.Second

// DefaultCoalescingTypes are the recurring event types that merge into one
// row per activity window instead of logging every occurrence.
var DefaultCoalescingTypes = []string{"User Active", "Media Updated"}

// Service is the event aggregator. Per-slot state lives in the UnitOfWork
// the caller threads through; the service itself is stateless apart from
// configuration and is safe for concurrent use across requests.
type Service struct {
	repo       event.Repository
	rdb        *redis.Client
	norm       *normalize.Normalizer
	loc        *time.Location
	roles      map[string]bool
	trackAnon  bool
	window     time.Duration
	coalescing map[string]bool
}

// NewService creates an aggregator with the given repository and tracking
// policy. rdb may be nil; the coalescing lock then degrades to pure
// best-effort (see Finalize).
func NewService(repo event.Repository, rdb *redis.Client, cfg config.TrackingConfig) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{
		repo:       repo,
		rdb:        rdb,
		norm:       normalize.New(loc),
		loc:        loc,
		roles:      cfg.Roles,
		trackAnon:  cfg.TrackAnonymous,
		window:     cfg.CoalesceWindow,
		coalescing: make(map[string]bool),
	}
	for _, t := range DefaultCoalescingTypes {
		s.coalescing[t] = true
	}
	return s
}

// RegisterCoalescing marks an event type as time-window coalescing: repeat
// observations for the same (type, subject) within the configured window
// amend the existing row instead of creating a new one.
func (s *Service) RegisterCoalescing(eventType string) {
	s.coalescing[eventType] = true
}

// Observe feeds one observation into the unit of work. The first
// observation for a slot transitions it Absent -> Building, gated by the
// actor policy; later observations merge into the in-flight event.
// Gated slots swallow all subsequent observations silently.
func (s *Service) Observe(uow *UnitOfWork, obs Observation) {
	st, ok := uow.slots[obs.Slot]
	if !ok {
		st = &slotState{}
		if !s.allowed(uow.Actor, obs.AllUsers) {
			st.gated = true
			slog.Debug("observation gated by actor policy",
				slog.String("slot", obs.Slot),
				slog.String("event_type", obs.EventType),
				slog.String("actor_roles", uow.Actor.RoleList()),
			)
		} else {
			st.event = s.newEvent(uow.Actor, obs)
		}
		uow.slots[obs.Slot] = st
		uow.order = append(uow.order, obs.Slot)
	}
	if st.gated {
		return
	}

	// A later observation may be the one that reveals this is a creation,
	// or that fills in subject identity the first callback didn't have.
	if obs.Creation {
		st.creation = true
	}
	if obs.AllUsers {
		st.allUsers = true
	}
	ev := st.event
	if ev.ObjectName == "" && obs.Subject.Name != "" {
		ev.ObjectName = obs.Subject.Name
	}
	if ev.ObjectKey == "" && obs.Subject.Key != "" {
		ev.ObjectKey = obs.Subject.Key
	}
	if ev.ObjectSubtype == "" && obs.Subject.Subtype != "" {
		ev.ObjectSubtype = obs.Subject.Subtype
	}

	for _, pc := range obs.Properties {
		s.mergeProperty(ev, pc)
	}
	for _, me := range obs.Metadata {
		ev.Metadata.Set(me.Key, s.norm.Normalize(me.Key, me.Value))
	}
}

// mergeProperty folds one before/after pair into the event's property set.
// Repeat observations of the same key keep the original old value and take
// the latest new value, so an action that fires three callbacks shows one
// change, not three. If old and new end up equal the property is recorded
// as "current value only" (nil NewValue).
func (s *Service) mergeProperty(ev *event.Event, pc PropertyChange) {
	oldVal := s.norm.Normalize(pc.Key, pc.Old)
	var newVal any
	if pc.New != nil {
		newVal = s.norm.Normalize(pc.Key, pc.New)
	}

	if existing := ev.Properties.Get(pc.Key); existing != nil {
		oldVal = existing.Value
	}

	if newVal == nil || normalize.Equal(oldVal, newVal) {
		ev.Properties.Set(pc.Key, pc.Source, oldVal, nil)
		return
	}
	ev.Properties.Set(pc.Key, pc.Source, oldVal, newVal)
}

// Flush persists a slot's in-flight event immediately while keeping it
// open for further accumulation. Used for long aggregation windows (e.g.
// an options batch saved partway through a request). If the final state
// later shows no changes, Finalize deletes the row written here.
func (s *Service) Flush(ctx context.Context, uow *UnitOfWork, slot string) error {
	ev, ok := uow.Event(slot)
	if !ok {
		return nil
	}
	if err := s.repo.Save(ctx, ev); err != nil {
		return fmt.Errorf("flushing slot %q: %w", slot, err)
	}
	return nil
}

// Finalize applies the end-of-unit-of-work policy to every slot, in
// first-touch order, and empties the unit of work. Per slot:
//
//   - creation: always persist, even with an empty property set
//   - all-users flagged: always persist; these record security-relevant
//     actions that carry metadata rather than property changes
//   - update: persist iff the property set has changes; otherwise discard,
//     and delete the row if the slot had already been flushed
//   - coalescing types: amend the most recent row for the same (type,
//     subject) when it is within the window, else start a fresh one
//
// Persistence failures are reported per slot and never abort the rest:
// a failed audit write must not corrupt or block anything.
func (s *Service) Finalize(ctx context.Context, uow *UnitOfWork) []Outcome {
	var outcomes []Outcome
	for _, slot := range uow.order {
		st := uow.slots[slot]
		if st.gated {
			continue
		}
		outcomes = append(outcomes, s.finalizeSlot(ctx, slot, st))
	}
	uow.order = nil
	uow.slots = make(map[string]*slotState)
	return outcomes
}

func (s *Service) finalizeSlot(ctx context.Context, slot string, st *slotState) Outcome {
	ev := st.event

	if s.coalescing[ev.EventType] && ev.ObjectKey != "" {
		return s.finalizeCoalescing(ctx, slot, ev)
	}

	if !st.creation && !st.allUsers && !ev.Properties.HasChanges() {
		// No-op update: never write a row, and take back any row a
		// mid-request flush already wrote.
		if ev.ID != 0 {
			deleted, err := s.repo.Delete(ctx, ev.ID)
			if err != nil {
				slog.Error("failed to delete stale empty event",
					slog.Int64("event_id", ev.ID), slog.Any("error", err))
				return Outcome{Slot: slot, Err: err}
			}
			return Outcome{Slot: slot, Deleted: deleted}
		}
		return Outcome{Slot: slot}
	}

	if err := s.repo.Save(ctx, ev); err != nil {
		slog.Error("failed to save event",
			slog.String("slot", slot),
			slog.String("event_type", ev.EventType),
			slog.Any("error", err),
		)
		return Outcome{Slot: slot, Err: err}
	}
	return Outcome{Slot: slot, EventID: ev.ID, Saved: true}
}

// finalizeCoalescing implements the continuing-session pattern: if the
// most recent persisted event of the same (type, subject) is within the
// window, extend its end-time metadata instead of writing a new row.
//
// Two nearly simultaneous requests can both see "no recent event" and both
// insert, producing two shorter windows instead of one. The Redis lock
// narrows that race but does not eliminate it; the degraded result is
// cosmetic, not data loss, so best-effort is acceptable here.
func (s *Service) finalizeCoalescing(ctx context.Context, slot string, ev *event.Event) Outcome {
	now := time.Now().In(s.loc)

	unlock := s.lockCoalesce(ctx, ev)
	defer unlock()

	prev, err := s.repo.MostRecent(ctx, ev.EventType, ev.ObjectType, ev.ObjectKey)
	if err != nil {
		slog.Error("coalescing lookup failed",
			slog.String("event_type", ev.EventType), slog.Any("error", err))
		return Outcome{Slot: slot, Err: err}
	}

	if prev != nil && now.Sub(prev.OccurredAt) <= s.window {
		// Amend the open window: extend its end time and fold in any
		// newly observed properties.
		prev.Metadata.Set(MetaSessionEnd, now)
		for _, p := range ev.Properties.All() {
			prev.Properties.Set(p.Key, p.Source, p.Value, p.NewValue)
		}
		for _, m := range ev.Metadata.All() {
			if m.Key != MetaSessionStart && m.Key != MetaSessionEnd {
				prev.Metadata.Set(m.Key, m.Value)
			}
		}
		if err := s.repo.Save(ctx, prev); err != nil {
			slog.Error("failed to amend coalesced event",
				slog.Int64("event_id", prev.ID), slog.Any("error", err))
			return Outcome{Slot: slot, Err: err}
		}
		return Outcome{Slot: slot, EventID: prev.ID, Saved: true}
	}

	ev.Metadata.Set(MetaSessionStart, ev.OccurredAt)
	ev.Metadata.Set(MetaSessionEnd, now)
	if err := s.repo.Save(ctx, ev); err != nil {
		slog.Error("failed to save coalescing event",
			slog.String("event_type", ev.EventType), slog.Any("error", err))
		return Outcome{Slot: slot, Err: err}
	}
	return Outcome{Slot: slot, EventID: ev.ID, Saved: true}
}

// lockCoalesce takes a short best-effort Redis lock for one (type, subject)
// pair and returns its release func. Lock failures (no Redis, contention)
// proceed without the lock -- see finalizeCoalescing for why that is safe.
func (s *Service) lockCoalesce(ctx context.Context, ev *event.Event) func() {
	if s.rdb == nil {
		return func() {}
	}
	key := fmt.Sprintf("logify:coalesce:%s:%s:%s", ev.EventType, ev.ObjectType, ev.ObjectKey)
	ok, err := s.rdb.SetNX(ctx, key, 1, coalesceLockTTL).Result()
	if err != nil || !ok {
		return func() {}
	}
	return func() {
		if err := s.rdb.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
			slog.Debug("failed to release coalesce lock", slog.String("key", key), slog.Any("error", err))
		}
	}
}

// allowed is the actor policy gate. Anonymous actors are tracked only when
// the policy says so; AllUsers-flagged actions log regardless of role;
// everything else requires a role intersection with the tracked set.
func (s *Service) allowed(actor Actor, allUsers bool) bool {
	if actor.IsAnonymous() {
		return s.trackAnon
	}
	if allUsers {
		return true
	}
	for _, role := range actor.Roles {
		if s.roles[strings.ToLower(role)] {
			return true
		}
	}
	return false
}

// newEvent builds the in-memory event a slot starts Building with.
func (s *Service) newEvent(actor Actor, obs Observation) *event.Event {
	return &event.Event{
		OccurredAt:    time.Now().In(s.loc),
		ActorID:       actor.ID,
		ActorName:     actor.Name,
		ActorRoles:    actor.RoleList(),
		ActorIP:       actor.IP,
		ActorLocation: actor.Location,
		ActorAgent:    actor.Agent,
		EventType:     obs.EventType,
		ObjectType:    obs.Subject.Type,
		ObjectSubtype: obs.Subject.Subtype,
		ObjectKey:     obs.Subject.Key,
		ObjectName:    obs.Subject.Name,
		Properties:    event.NewPropertySet(),
		Metadata:      event.NewMetadataSet(),
	}
}
