// Package database provides connection setup for MariaDB and Redis.
// This file validates migration SQL files to catch schema mismatches early.
package database

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// eventColumns must match the columns the event repository reads and writes.
// Update this set together with the INSERT/SELECT statements in
// internal/event/repository.go.
var eventColumns = []string{
	"occurred_at",
	"actor_id",
	"actor_name",
	"actor_roles",
	"actor_ip",
	"actor_location",
	"actor_agent",
	"event_type",
	"object_type",
	"object_subtype",
	"object_key",
	"object_name",
}

// migrationsDir returns the absolute path to db/migrations/ from the project root.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	// thisFile is internal/database/migrate_test.go, project root is two dirs up.
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	dir := filepath.Join(projectRoot, "db", "migrations")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations directory not found at %s: %v", dir, err)
	}
	return dir
}

// TestMigrations_EventColumns checks that the events table migration defines
// every column the repository statements reference. A missing column here
// surfaces at runtime as Error 1054 (unknown column) on the first save.
func TestMigrations_EventColumns(t *testing.T) {
	dir := migrationsDir(t)
	data, err := os.ReadFile(filepath.Join(dir, "000001_create_events.up.sql"))
	if err != nil {
		t.Fatalf("reading events migration: %v", err)
	}
	content := string(data)

	for _, col := range eventColumns {
		if !strings.Contains(content, col) {
			t.Errorf("events migration missing column %q", col)
		}
	}
}

// TestMigrations_ChildTablesCascade ensures both child tables declare
// ON DELETE CASCADE foreign keys to events. The repository's Delete relies
// on the cascade instead of deleting child rows itself.
func TestMigrations_ChildTablesCascade(t *testing.T) {
	dir := migrationsDir(t)
	children := []string{
		"000002_create_event_properties.up.sql",
		"000003_create_event_metadata.up.sql",
	}

	for _, name := range children {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		content := string(data)

		if !strings.Contains(content, "REFERENCES events") {
			t.Errorf("%s: missing foreign key to events", name)
		}
		if !strings.Contains(content, "ON DELETE CASCADE") {
			t.Errorf("%s: foreign key must cascade deletes", name)
		}
		if !strings.Contains(content, "sort_order") {
			t.Errorf("%s: missing sort_order column", name)
		}
	}
}

// TestMigrations_CoalesceIndex checks for the composite index that backs the
// MostRecent lookup. Without it every coalescing check scans the table.
func TestMigrations_CoalesceIndex(t *testing.T) {
	dir := migrationsDir(t)
	data, err := os.ReadFile(filepath.Join(dir, "000001_create_events.up.sql"))
	if err != nil {
		t.Fatalf("reading events migration: %v", err)
	}

	if !strings.Contains(string(data), "idx_events_coalesce") {
		t.Error("events migration missing idx_events_coalesce index")
	}
}

// TestMigrations_UpDownPairs ensures every .up.sql has a matching .down.sql.
func TestMigrations_UpDownPairs(t *testing.T) {
	dir := migrationsDir(t)
	upFiles, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing up files: %v", err)
	}
	if len(upFiles) == 0 {
		t.Fatal("no migration files found")
	}

	for _, up := range upFiles {
		down := strings.Replace(up, ".up.sql", ".down.sql", 1)
		if _, err := os.Stat(down); err != nil {
			t.Errorf("missing down migration for %s", filepath.Base(up))
		}
	}
}
