package admin

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository runs the two-phase search over the events table: total count,
// filtered count, then the sorted, sliced page of event ids.
type Repository interface {
	// Search applies the filter and returns the unconditional row count,
	// the filtered count, and the page of matching event ids. The filter
	// is expected to have had applyDefaults run by the service.
	Search(ctx context.Context, f Filter) (total int, filtered int, ids []int64, err error)
}

// sqlRepository implements Repository with MariaDB queries.
type sqlRepository struct {
	db  *sql.DB
	loc *time.Location
}

// NewRepository creates a search repository. loc is the site zone used to
// interpret date-range bounds.
func NewRepository(db *sql.DB, loc *time.Location) Repository {
	if loc == nil {
		loc = time.UTC
	}
	return &sqlRepository{db: db, loc: loc}
}

func (r *sqlRepository) Search(ctx context.Context, f Filter) (int, int, []int64, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events`).Scan(&total); err != nil {
		return 0, 0, nil, fmt.Errorf("counting events: %w", err)
	}

	where, args := whereClause(f, r.loc)

	filtered := total
	if where != "" {
		if err := r.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM events "+where, args...).Scan(&filtered); err != nil {
			return 0, 0, nil, fmt.Errorf("counting filtered events: %w", err)
		}
	}

	query := "SELECT id FROM events"
	if where != "" {
		query += " " + where
	}
	query += " " + orderClause(f) + " LIMIT ? OFFSET ?"
	pageArgs := append(args, f.Length, f.Start)

	rows, err := r.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("querying event page: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, 0, nil, fmt.Errorf("scanning event id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, 0, nil, fmt.Errorf("iterating event page: %w", err)
	}

	return total, filtered, ids, nil
}
