package subject

import (
	"context"
	"log/slog"
)

// Resolver is the capability set implemented once per object type. A
// resolver answers existence checks, loads the live object's fields, and
// decides how a reference to it should render.
//
// Resolution failure (object deleted) is not an error: Exists returns
// false, Load returns nil fields, and Tag falls back to the reference's
// captured name. Only infrastructure failures (broken DB connection)
// surface as errors.
type Resolver interface {
	// Exists reports whether the object identified by key is still present.
	Exists(ctx context.Context, key string) (bool, error)

	// Load returns the object's core fields in display order, or nil if
	// the object no longer exists.
	Load(ctx context.Context, key string) ([]Field, error)

	// Name returns the object's current display name, or "" if it no
	// longer exists.
	Name(ctx context.Context, key string) (string, error)

	// Tag returns the display decision for the given reference: a link to
	// the live object when it exists, otherwise a "deleted" span carrying
	// the reference's captured name.
	Tag(ctx context.Context, ref Reference) (DisplayTag, error)
}

// Registry dispatches resolver capabilities by Reference.Type. It is the
// only way references are resolved; references themselves are plain data.
type Registry struct {
	resolvers map[Type]Resolver
}

// NewRegistry creates an empty registry. Use Register to attach resolvers;
// NewDefaultRegistry wires the standard set backed by the host tables.
func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[Type]Resolver)}
}

// Register attaches a resolver for the given type, replacing any existing one.
func (r *Registry) Register(t Type, res Resolver) {
	r.resolvers[t] = res
}

// Resolver returns the resolver for the given type, or nil if none is
// registered.
func (r *Registry) Resolver(t Type) Resolver {
	return r.resolvers[t]
}

// Exists reports whether the referenced object is still present. Unknown
// types and lookup failures report false: a subject we cannot resolve is
// treated as gone, never as an error.
func (r *Registry) Exists(ctx context.Context, ref Reference) bool {
	res := r.resolvers[ref.Type]
	if res == nil {
		return false
	}
	ok, err := res.Exists(ctx, ref.Key)
	if err != nil {
		slog.Debug("subject existence check failed",
			slog.String("type", string(ref.Type)),
			slog.String("key", ref.Key),
			slog.Any("error", err),
		)
		return false
	}
	return ok
}

// Resolve returns the live object's fields, or nil when the object is gone
// or the type is unknown. The nil return is the expected terminal state for
// deleted subjects, not an error.
func (r *Registry) Resolve(ctx context.Context, ref Reference) []Field {
	res := r.resolvers[ref.Type]
	if res == nil {
		return nil
	}
	fields, err := res.Load(ctx, ref.Key)
	if err != nil {
		slog.Debug("subject load failed",
			slog.String("type", string(ref.Type)),
			slog.String("key", ref.Key),
			slog.Any("error", err),
		)
		return nil
	}
	return fields
}

// DisplayTag returns the rendering decision for a reference. It never
// fails: any resolution problem degrades to a "deleted" span containing
// the originally captured name.
func (r *Registry) DisplayTag(ctx context.Context, ref Reference) DisplayTag {
	if res := r.resolvers[ref.Type]; res != nil {
		tag, err := res.Tag(ctx, ref)
		if err == nil {
			return tag
		}
		slog.Debug("subject tag failed",
			slog.String("type", string(ref.Type)),
			slog.String("key", ref.Key),
			slog.Any("error", err),
		)
	}
	return deletedTag(ref)
}

// deletedTag is the universal fallback: a span with the captured name.
func deletedTag(ref Reference) DisplayTag {
	text := ref.Name
	if text == "" {
		text = ref.Key
	}
	return DisplayTag{Kind: TagSpan, Text: text, Deleted: true}
}
