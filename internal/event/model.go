// Package event defines the audit Event record -- one logical action taken
// by an actor against an optional subject -- together with its ordered
// Property and Metadata sets, and the transactional repository that
// persists all three across the events, event_properties, and
// event_metadata tables.
package event

import (
	"time"

	"github.com/logifywp/logify/internal/subject"
)

// Event is one audit-log record. An Event is created in memory (ID zero),
// optionally mutated while the originating action is still in progress,
// then persisted exactly once -- or discarded if it turns out to record
// nothing. Actor and object names are denormalized snapshots so the record
// stays displayable after the actor or subject is deleted.
type Event struct {
	// ID is zero until the event is persisted; Save assigns it.
	ID int64 `json:"id"`

	// OccurredAt is when the action happened, in the site's configured
	// zone. Immutable once set.
	OccurredAt time.Time `json:"occurredAt"`

	// ActorID is the acting principal's user id; 0 means anonymous.
	ActorID int64 `json:"actorId"`

	// ActorName is the display name snapshot. Survives actor deletion.
	ActorName string `json:"actorName"`

	// ActorRoles is the actor's comma-joined role set, "none" if anonymous.
	ActorRoles string `json:"actorRoles"`

	// ActorIP is the client address the action came from.
	ActorIP string `json:"actorIp"`

	// ActorLocation is a best-effort geo description. Empty when unknown.
	ActorLocation string `json:"actorLocation,omitempty"`

	// ActorAgent is the user agent string. Empty when unknown.
	ActorAgent string `json:"actorAgent,omitempty"`

	// EventType classifies the action, e.g. "Post Created", "User Login".
	// An open set grown by each tracker; no central registry enforces
	// uniqueness.
	EventType string `json:"eventType"`

	// ObjectType identifies the subject's kind. Empty for typeless events.
	ObjectType subject.Type `json:"objectType,omitempty"`

	// ObjectSubtype is the post type or taxonomy, when applicable.
	ObjectSubtype string `json:"objectSubtype,omitempty"`

	// ObjectKey is the subject's primary key rendered as a string.
	ObjectKey string `json:"objectKey,omitempty"`

	// ObjectName is the subject's display name snapshot, used as the
	// fallback when the subject is later deleted. Never re-derived from a
	// dead reference.
	ObjectName string `json:"objectName,omitempty"`

	// Properties holds the subject's observed attribute changes.
	Properties *PropertySet `json:"properties,omitempty"`

	// Metadata holds event context that is not a changed attribute of the
	// subject (error codes, session timers, attached term lists).
	Metadata *MetadataSet `json:"metadata,omitempty"`
}

// Ref returns the event's subject as a Reference, carrying the captured
// display name for deleted-subject fallback.
func (e *Event) Ref() subject.Reference {
	return subject.Reference{Type: e.ObjectType, Key: e.ObjectKey, Name: e.ObjectName}
}

// HasSubject reports whether the event is about a concrete object, as
// opposed to a typeless system event.
func (e *Event) HasSubject() bool {
	return e.ObjectType != ""
}
