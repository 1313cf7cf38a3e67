package subject

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// HostTables names the host site's content tables the SQL resolvers read
// from. Logify shares a database (or a replica) with the host, so lookups
// are plain indexed selects. Names are configuration owned by this process,
// never user input, so they are safe to substitute into queries.
type HostTables struct {
	Posts    string
	Users    string
	Terms    string
	Comments string
	Options  string
	Plugins  string
	Themes   string
	Widgets  string
}

// DefaultTables returns the standard host table names.
func DefaultTables() HostTables {
	return HostTables{
		Posts:    "posts",
		Users:    "users",
		Terms:    "terms",
		Comments: "comments",
		Options:  "options",
		Plugins:  "plugins",
		Themes:   "themes",
		Widgets:  "widgets",
	}
}

// NewDefaultRegistry builds a registry with one resolver per object type,
// backed by the given DB pool and host table layout. baseURL is the host
// site's admin URL used for edit links in display tags.
func NewDefaultRegistry(db *sql.DB, baseURL string, tables HostTables) *Registry {
	r := NewRegistry()
	r.Register(TypePost, &rowResolver{
		db: db, table: tables.Posts, keyCol: "id", nameCol: "title",
		coreCols: []string{"title", "status", "author_id", "created_at", "updated_at"},
		editPath: baseURL + "/admin/posts/%s/edit",
	})
	r.Register(TypeUser, &rowResolver{
		db: db, table: tables.Users, keyCol: "id", nameCol: "display_name",
		coreCols: []string{"display_name", "email", "registered_at"},
		editPath: baseURL + "/admin/users/%s/edit",
	})
	r.Register(TypeTerm, &rowResolver{
		db: db, table: tables.Terms, keyCol: "id", nameCol: "name",
		coreCols: []string{"name", "slug", "taxonomy"},
		editPath: baseURL + "/admin/terms/%s/edit",
	})
	r.Register(TypeComment, &rowResolver{
		db: db, table: tables.Comments, keyCol: "id", nameCol: "excerpt",
		coreCols: []string{"excerpt", "author_name", "created_at"},
		editPath: baseURL + "/admin/comments/%s/edit",
	})
	r.Register(TypeOption, &rowResolver{
		db: db, table: tables.Options, keyCol: "name", nameCol: "name",
		coreCols: []string{"name", "value"},
	})
	r.Register(TypePlugin, &rowResolver{
		db: db, table: tables.Plugins, keyCol: "slug", nameCol: "name",
		coreCols: []string{"name", "version", "active"},
	})
	r.Register(TypeTheme, &rowResolver{
		db: db, table: tables.Themes, keyCol: "slug", nameCol: "name",
		coreCols: []string{"name", "version", "active"},
	})
	r.Register(TypeWidget, &rowResolver{
		db: db, table: tables.Widgets, keyCol: "id", nameCol: "title",
		coreCols: []string{"title", "area", "kind"},
	})
	r.Register(TypeCore, coreResolver{})
	return r
}

// rowResolver resolves one object type by reading a single row from a host
// table. Column and table names come from HostTables configuration, so
// they are interpolated directly; every value is a bound parameter.
type rowResolver struct {
	db *sql.DB

	// table is the host table holding this object type.
	table string

	// keyCol is the primary key column matched against Reference.Key.
	keyCol string

	// nameCol is the display name column.
	nameCol string

	// coreCols are the columns returned by Load, in display order.
	coreCols []string

	// editPath is a format string producing an edit link for the object,
	// with %s standing in for the key. Empty means the type has no edit
	// screen and live references render as plain spans.
	editPath string
}

func (r *rowResolver) Exists(ctx context.Context, key string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ? LIMIT 1", r.table, r.keyCol)
	var one int
	err := r.db.QueryRowContext(ctx, query, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s existence: %w", r.table, err)
	}
	return true, nil
}

func (r *rowResolver) Load(ctx context.Context, key string) ([]Field, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1",
		strings.Join(r.coreCols, ", "), r.table, r.keyCol)

	row := r.db.QueryRowContext(ctx, query, key)
	values := make([]any, len(r.coreCols))
	ptrs := make([]any, len(r.coreCols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	if err := row.Scan(ptrs...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("loading %s row: %w", r.table, err)
	}

	fields := make([]Field, len(r.coreCols))
	for i, col := range r.coreCols {
		fields[i] = Field{Key: col, Value: displayValue(values[i])}
	}
	return fields, nil
}

func (r *rowResolver) Name(ctx context.Context, key string) (string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1", r.nameCol, r.table, r.keyCol)
	var name sql.NullString
	err := r.db.QueryRowContext(ctx, query, key).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading %s name: %w", r.table, err)
	}
	return name.String, nil
}

func (r *rowResolver) Tag(ctx context.Context, ref Reference) (DisplayTag, error) {
	name, err := r.Name(ctx, ref.Key)
	if err != nil {
		return DisplayTag{}, err
	}
	if name == "" {
		// Object is gone: fall back to the name captured at event time.
		return deletedTag(ref), nil
	}
	if r.editPath == "" {
		return DisplayTag{Kind: TagSpan, Text: name}, nil
	}
	return DisplayTag{
		Kind: TagLink,
		Href: fmt.Sprintf(r.editPath, ref.Key),
		Text: name,
	}, nil
}

// displayValue converts driver-level scan results into plain values.
// MariaDB returns text columns as []byte.
func displayValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// coreResolver is the degenerate resolver for site-level events. The core
// has no identity: it always exists, is never loadable, and renders as a
// plain span.
type coreResolver struct{}

func (coreResolver) Exists(ctx context.Context, key string) (bool, error) {
	return true, nil
}

func (coreResolver) Load(ctx context.Context, key string) ([]Field, error) {
	return nil, nil
}

func (coreResolver) Name(ctx context.Context, key string) (string, error) {
	return "Site Core", nil
}

func (coreResolver) Tag(ctx context.Context, ref Reference) (DisplayTag, error) {
	text := ref.Name
	if text == "" {
		text = "Site Core"
	}
	return DisplayTag{Kind: TagSpan, Text: text}, nil
}
