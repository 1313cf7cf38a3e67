// Package subject models the things an audit event can be about: posts,
// users, terms, options, plugins, themes, comments, widgets, or the site
// core itself. A Reference is a possibly-dangling pointer to one of them,
// carrying enough denormalized data (the captured display name) to stay
// presentable after the underlying object is deleted.
package subject

// Type identifies the kind of object a Reference points at. The set is
// closed: resolvers are registered per type and unknown types degrade to
// the captured-name fallback.
type Type string

const (
	TypePost    Type = "post"
	TypeUser    Type = "user"
	TypeTerm    Type = "term"
	TypeOption  Type = "option"
	TypePlugin  Type = "plugin"
	TypeTheme   Type = "theme"
	TypeComment Type = "comment"
	TypeWidget  Type = "widget"

	// TypeCore is the degenerate subject for site-level events (core
	// version change, maintenance events). It has no identity: the core
	// always "exists" and is never loadable.
	TypeCore Type = "core"
)

// Reference is a polymorphic handle to a domain object. Key is the object's
// primary key rendered as a string (numeric for posts/users/comments, the
// option name or plugin slug for the rest). Name is the display name
// snapshot taken at event time; it is the fallback shown when the object no
// longer exists and is never re-derived from a dead reference.
type Reference struct {
	Type Type   `json:"type"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// TagKind distinguishes how a reference renders in the admin UI.
type TagKind string

const (
	// TagLink renders as a hyperlink to the live object's edit screen.
	TagLink TagKind = "link"

	// TagSpan renders as plain text, used for deleted subjects and for
	// types that have no edit screen.
	TagSpan TagKind = "span"
)

// DisplayTag is the rendering decision for a reference: a link to the live
// object, or a span carrying the captured name when the object is gone.
// HTML construction is the consumer's job; this is only the decision.
type DisplayTag struct {
	Kind    TagKind `json:"kind"`
	Href    string  `json:"href,omitempty"`
	Text    string  `json:"text"`
	Deleted bool    `json:"deleted"`
}

// Field is one named value of a resolved object, in display order.
type Field struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}
