// Package tracker is the event aggregation core. It turns an arbitrary,
// possibly multi-step stream of "something changed" observations into at
// most one audit event per logical action, applying the actor tracking
// policy, merging repeat observations by property key, and deciding at
// end of unit of work whether each in-flight event is persisted, amended,
// or discarded.
package tracker

import (
	"strings"

	"github.com/logifywp/logify/internal/event"
	"github.com/logifywp/logify/internal/subject"
)

// Actor is the acting principal behind a unit of work, snapshotted by the
// host at request time.
type Actor struct {
	// ID is the host user id; 0 means anonymous.
	ID int64 `json:"id"`

	// Name is the display name at action time.
	Name string `json:"name"`

	// Roles is the actor's role set.
	Roles []string `json:"roles"`

	// IP is the client address.
	IP string `json:"ip"`

	// Agent is the user agent string, if known.
	Agent string `json:"agent,omitempty"`

	// Location is a best-effort geo description, if the host derived one.
	Location string `json:"location,omitempty"`
}

// IsAnonymous reports whether there is no authenticated principal.
func (a Actor) IsAnonymous() bool {
	return a.ID == 0
}

// RoleList returns the comma-joined role set, or "none" when empty.
func (a Actor) RoleList() string {
	if len(a.Roles) == 0 {
		return "none"
	}
	return strings.Join(a.Roles, ",")
}

// Subject identifies what an observation is about.
type Subject struct {
	Type    subject.Type `json:"type"`
	Subtype string       `json:"subtype,omitempty"`
	Key     string       `json:"key,omitempty"`
	Name    string       `json:"name,omitempty"`
}

// PropertyChange is one before/after pair delivered by an observation.
// Values arrive raw (strings, JSON scalars, blobs) and are normalized on
// intake. A nil New means the observation only reports the current value.
type PropertyChange struct {
	Key    string `json:"key"`
	Source string `json:"source,omitempty"`
	Old    any    `json:"old"`
	New    any    `json:"new,omitempty"`
}

// MetadataEntry is one contextual key/value delivered by an observation.
type MetadataEntry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Observation is one "something changed" notification from the host. A
// single logical action may deliver several observations for the same slot
// (before-update, updated, saved); the aggregator merges them instead of
// recording the same field changing multiple times.
type Observation struct {
	// Slot names the logical-action accumulation context ("post:42",
	// "options", "login"). All observations for one logical action share
	// a slot.
	Slot string `json:"slot"`

	// EventType classifies the action, e.g. "Post Updated".
	EventType string `json:"eventType"`

	// Subject is what the action is about. Zero value for typeless events.
	Subject Subject `json:"subject"`

	// Creation marks the slot as recording a brand-new subject. Creations
	// persist even with an empty property set.
	Creation bool `json:"creation,omitempty"`

	// AllUsers forces logging regardless of the actor's role (login
	// attempts and similar security-relevant actions). Such slots also
	// persist at finalization even without property changes, since these
	// actions typically carry only metadata.
	AllUsers bool `json:"allUsers,omitempty"`

	// Properties are the before/after pairs observed at this point.
	Properties []PropertyChange `json:"properties,omitempty"`

	// Metadata is contextual data attached to the event.
	Metadata []MetadataEntry `json:"metadata,omitempty"`
}

// slotState is the aggregator's per-slot lifecycle record. A slot is
// Absent until its first observation, Building while it accepts mutations,
// and leaves the unit of work at finalization.
type slotState struct {
	event *event.Event

	// creation marks the slot as recording a new subject.
	creation bool

	// allUsers marks the slot as always persisted at finalization.
	// Security-relevant actions (logins, failed logins) carry metadata
	// rather than property changes, so the no-op-update rule must not
	// swallow them.
	allUsers bool

	// gated means the policy check rejected the slot at first touch;
	// every later observation for it is a no-op.
	gated bool
}

// UnitOfWork is the explicit per-request context the aggregator threads
// through the observation call chain: one actor plus a mapping from slot
// name to in-flight event. It replaces hidden global tracker state, is
// single-threaded by construction, and must be finalized (or dropped) by
// the end of the triggering request.
type UnitOfWork struct {
	Actor Actor

	order []string
	slots map[string]*slotState
}

// NewUnitOfWork creates an empty unit of work for the given actor.
func NewUnitOfWork(actor Actor) *UnitOfWork {
	return &UnitOfWork{
		Actor: actor,
		slots: make(map[string]*slotState),
	}
}

// Event returns the in-flight event for a slot, or (nil, false) when the
// slot is absent or was policy-gated. Callers must re-check before
// mutating -- a gated slot never has an event.
func (u *UnitOfWork) Event(slot string) (*event.Event, bool) {
	st, ok := u.slots[slot]
	if !ok || st.gated || st.event == nil {
		return nil, false
	}
	return st.event, true
}

// Slots returns the slot names in first-touch order.
func (u *UnitOfWork) Slots() []string {
	out := make([]string, len(u.order))
	copy(out, u.order)
	return out
}

// Outcome reports what finalization decided for one slot.
type Outcome struct {
	// Slot is the slot this outcome belongs to.
	Slot string `json:"slot"`

	// EventID is the persisted event id, when Saved.
	EventID int64 `json:"eventId,omitempty"`

	// Saved means the event was written (inserted, updated, or amended
	// into a coalesced row).
	Saved bool `json:"saved"`

	// Deleted means a previously persisted row was removed because the
	// final state showed no changes.
	Deleted bool `json:"deleted,omitempty"`

	// Err is the persistence failure, if any. Logging failure never
	// blocks the host's primary operation, so errors are reported here
	// rather than aborting the whole finalization.
	Err error `json:"-"`
}
