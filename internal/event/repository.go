package event

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/logifywp/logify/internal/normalize"
	"github.com/logifywp/logify/internal/subject"
)

// Repository defines the persistence contract for events and their child
// property/metadata rows. All SQL lives in the concrete implementation --
// no SQL leaks out.
//
// Expected-absence lookups (Load, MostRecent) return nil, not an error.
// Only infrastructure failures surface as errors.
type Repository interface {
	// Save persists the event and replaces its full property and metadata
	// sets, all in one transaction. A zero ID inserts and assigns the new
	// id; a non-zero ID updates the existing row in place. Child rows are
	// deleted and rewritten on every save, not incrementally diffed --
	// save cost is proportional to total property count, not the delta.
	Save(ctx context.Context, e *Event) error

	// Load reconstructs an event with its property and metadata sets
	// attached. Returns nil (not an error) if the id does not exist.
	Load(ctx context.Context, id int64) (*Event, error)

	// Delete removes the event row; child rows cascade. Returns whether a
	// row was actually deleted.
	Delete(ctx context.Context, id int64) (bool, error)

	// MostRecent returns the latest event of the given type for the given
	// subject, or nil if none exists. Used by the time-windowed coalescing
	// rule; backed by a single indexed lookup.
	MostRecent(ctx context.Context, eventType string, objectType subject.Type, objectKey string) (*Event, error)

	// PurgeOlderThan bulk-deletes events that occurred strictly before the
	// cutoff. Idempotent; returns the number of events removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// sqlRepository implements Repository with MariaDB queries.
type sqlRepository struct {
	db *sql.DB
}

// NewRepository creates a repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &sqlRepository{db: db}
}

// Save writes the event row and fully rewrites its child rows inside one
// transaction. Any failure rolls back everything, including a freshly
// inserted main row -- partial persistence is never acceptable.
func (r *sqlRepository) Save(ctx context.Context, e *Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning event save: %w", err)
	}
	// Rollback is a no-op after a successful commit.
	defer tx.Rollback()

	insertedID, err := saveMainRow(ctx, tx, e)
	if err != nil {
		return err
	}

	// Replace-all-on-save: child rows are deleted and rewritten whether or
	// not they changed.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM event_properties WHERE event_id = ?`, insertedID); err != nil {
		return fmt.Errorf("clearing event properties: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM event_metadata WHERE event_id = ?`, insertedID); err != nil {
		return fmt.Errorf("clearing event metadata: %w", err)
	}

	if e.Properties != nil {
		for i, p := range e.Properties.All() {
			oldEnc, err := normalize.Encode(p.Value)
			if err != nil {
				return fmt.Errorf("encoding property %q: %w", p.Key, err)
			}
			var newEnc any
			if p.NewValue != nil {
				enc, err := normalize.Encode(p.NewValue)
				if err != nil {
					return fmt.Errorf("encoding property %q new value: %w", p.Key, err)
				}
				newEnc = enc
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO event_properties (event_id, prop_key, prop_source, old_value, new_value, sort_order)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				insertedID, p.Key, nullableString(p.Source), oldEnc, newEnc, i,
			); err != nil {
				return fmt.Errorf("inserting property %q: %w", p.Key, err)
			}
		}
	}

	if e.Metadata != nil {
		for i, m := range e.Metadata.All() {
			enc, err := normalize.Encode(m.Value)
			if err != nil {
				return fmt.Errorf("encoding metadata %q: %w", m.Key, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO event_metadata (event_id, meta_key, meta_value, sort_order)
				 VALUES (?, ?, ?, ?)`,
				insertedID, m.Key, enc, i,
			); err != nil {
				return fmt.Errorf("inserting metadata %q: %w", m.Key, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing event save: %w", err)
	}

	// Only assign the id after the transaction is durable.
	e.ID = insertedID
	return nil
}

// saveMainRow inserts or updates the events-table row and returns its id.
func saveMainRow(ctx context.Context, tx *sql.Tx, e *Event) (int64, error) {
	if e.ID == 0 {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO events
			   (occurred_at, actor_id, actor_name, actor_roles, actor_ip,
			    actor_location, actor_agent, event_type,
			    object_type, object_subtype, object_key, object_name)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.OccurredAt, e.ActorID, e.ActorName, e.ActorRoles, e.ActorIP,
			nullableString(e.ActorLocation), nullableString(e.ActorAgent), e.EventType,
			nullableString(string(e.ObjectType)), nullableString(e.ObjectSubtype),
			nullableString(e.ObjectKey), nullableString(e.ObjectName),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting event: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("getting event id: %w", err)
		}
		return id, nil
	}

	// occurred_at is immutable once set, so it is deliberately not in the
	// update list.
	if _, err := tx.ExecContext(ctx,
		`UPDATE events SET
		   actor_id = ?, actor_name = ?, actor_roles = ?, actor_ip = ?,
		   actor_location = ?, actor_agent = ?, event_type = ?,
		   object_type = ?, object_subtype = ?, object_key = ?, object_name = ?
		 WHERE id = ?`,
		e.ActorID, e.ActorName, e.ActorRoles, e.ActorIP,
		nullableString(e.ActorLocation), nullableString(e.ActorAgent), e.EventType,
		nullableString(string(e.ObjectType)), nullableString(e.ObjectSubtype),
		nullableString(e.ObjectKey), nullableString(e.ObjectName),
		e.ID,
	); err != nil {
		return 0, fmt.Errorf("updating event %d: %w", e.ID, err)
	}
	return e.ID, nil
}

// Load reconstructs an event from the three tables.
func (r *sqlRepository) Load(ctx context.Context, id int64) (*Event, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, occurred_at, actor_id, actor_name, actor_roles, actor_ip,
		        actor_location, actor_agent, event_type,
		        object_type, object_subtype, object_key, object_name
		 FROM events WHERE id = ?`, id)

	e := &Event{}
	var location, agent, objType, objSubtype, objKey, objName sql.NullString
	err := row.Scan(
		&e.ID, &e.OccurredAt, &e.ActorID, &e.ActorName, &e.ActorRoles, &e.ActorIP,
		&location, &agent, &e.EventType,
		&objType, &objSubtype, &objKey, &objName,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading event %d: %w", id, err)
	}

	e.ActorLocation = location.String
	e.ActorAgent = agent.String
	e.ObjectType = subject.Type(objType.String)
	e.ObjectSubtype = objSubtype.String
	e.ObjectKey = objKey.String
	e.ObjectName = objName.String

	if e.Properties, err = r.loadProperties(ctx, e.ID); err != nil {
		return nil, err
	}
	if e.Metadata, err = r.loadMetadata(ctx, e.ID); err != nil {
		return nil, err
	}
	return e, nil
}

// loadProperties fetches the property rows for an event in stored order.
// A value that fails to decode is kept as its raw serialized text rather
// than dropped -- a readable-but-ugly property beats a missing one.
func (r *sqlRepository) loadProperties(ctx context.Context, eventID int64) (*PropertySet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT prop_key, prop_source, old_value, new_value
		 FROM event_properties WHERE event_id = ? ORDER BY sort_order`, eventID)
	if err != nil {
		return nil, fmt.Errorf("loading event %d properties: %w", eventID, err)
	}
	defer rows.Close()

	ps := NewPropertySet()
	for rows.Next() {
		var key string
		var source sql.NullString
		var oldRaw []byte
		var newRaw []byte
		if err := rows.Scan(&key, &source, &oldRaw, &newRaw); err != nil {
			return nil, fmt.Errorf("scanning property row: %w", err)
		}

		oldVal, err := normalize.Decode(oldRaw)
		if err != nil {
			oldVal = string(oldRaw)
		}
		var newVal any
		if newRaw != nil {
			newVal, err = normalize.Decode(newRaw)
			if err != nil {
				newVal = string(newRaw)
			}
		}
		ps.Set(key, source.String, oldVal, newVal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating property rows: %w", err)
	}
	return ps, nil
}

// loadMetadata fetches the metadata rows for an event in stored order.
func (r *sqlRepository) loadMetadata(ctx context.Context, eventID int64) (*MetadataSet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT meta_key, meta_value
		 FROM event_metadata WHERE event_id = ? ORDER BY sort_order`, eventID)
	if err != nil {
		return nil, fmt.Errorf("loading event %d metadata: %w", eventID, err)
	}
	defer rows.Close()

	ms := NewMetadataSet()
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scanning metadata row: %w", err)
		}
		val, err := normalize.Decode(raw)
		if err != nil {
			val = string(raw)
		}
		ms.Set(key, val)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating metadata rows: %w", err)
	}
	return ms, nil
}

// Delete removes the event row. Child rows are removed by the ON DELETE
// CASCADE foreign keys on event_properties and event_metadata.
func (r *sqlRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting event %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking delete of event %d: %w", id, err)
	}
	return affected > 0, nil
}

// MostRecent finds the latest event of a type for a subject via the
// (event_type, object_type, object_key, occurred_at) index, then loads it
// fully so callers can amend its metadata.
func (r *sqlRepository) MostRecent(ctx context.Context, eventType string, objectType subject.Type, objectKey string) (*Event, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM events
		 WHERE event_type = ? AND object_type = ? AND object_key = ?
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT 1`,
		eventType, string(objectType), objectKey,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding most recent %q event: %w", eventType, err)
	}
	return r.Load(ctx, id)
}

// PurgeOlderThan bulk-deletes old events. Runs outside any transaction:
// it only removes rows strictly older than a cutoff no in-flight
// aggregation would still be targeting, so it is safe to run concurrently
// with normal writes.
func (r *sqlRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM events WHERE occurred_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging events before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged events: %w", err)
	}
	return affected, nil
}

// nullableString maps "" to SQL NULL for optional columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
