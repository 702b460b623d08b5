package db

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	migrations, err := GetEmbeddedMigrations()
	if err != nil {
		t.Fatal(err)
	}
	if len(migrations) < 2 {
		t.Fatalf("got %d migrations", len(migrations))
	}
	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("migration %d has version %d", i, m.Version)
		}
		if m.SQL == "" || m.Name == "" {
			t.Errorf("migration %d is incomplete: %+v", m.Version, m)
		}
	}
	if migrations[0].Name != "history" {
		t.Errorf("first migration = %q", migrations[0].Name)
	}
}

func TestInitializeDatabaseIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	if err := InitializeDatabase(db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := InitializeDatabase(db); err != nil {
		t.Fatalf("second run: %v", err)
	}

	status, err := NewMigrationManager(db).GetMigrationStatus()
	if err != nil {
		t.Fatal(err)
	}
	if len(status.Pending) != 0 || len(status.Applied) != len(status.Available) {
		t.Errorf("status = %d applied, %d pending, %d available", len(status.Applied), len(status.Pending), len(status.Available))
	}
	for _, m := range status.Applied {
		if m.AppliedAt == nil || m.AppliedAt.IsZero() {
			t.Errorf("migration %d has no applied time", m.Version)
		}
	}

	if _, err := db.Exec("INSERT INTO search_log (query, source, result_count, searched_at) VALUES ('x', 'remote', 1, 0)"); err != nil {
		t.Errorf("schema not usable: %v", err)
	}
}

func TestMigrationsFromPath(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"001_first.sql":  "CREATE TABLE a (id INTEGER);",
		"002_second.sql": "CREATE TABLE b (id INTEGER);",
		"notes.txt":      "ignored",
		"bad_name.sql":   "CREATE TABLE c (id INTEGER);",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	db := openTestDB(t)
	m := NewMigrationManagerFromPath(db, dir)
	if err := m.EnsureMigrationsTable(); err != nil {
		t.Fatal(err)
	}

	pending, err := m.GetPendingMigrations()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].Name != "first" || pending[1].Version != 2 {
		t.Fatalf("pending = %+v", pending)
	}

	if err := InitializeDatabaseFromPath(db, dir); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("INSERT INTO b (id) VALUES (1)"); err != nil {
		t.Errorf("table b missing: %v", err)
	}
}

func TestFailedMigrationRollsBack(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_broken.sql"), []byte("CREATE TABLE ok (id INTEGER); NOT SQL;"), 0644); err != nil {
		t.Fatal(err)
	}

	db := openTestDB(t)
	if err := InitializeDatabaseFromPath(db, dir); err == nil {
		t.Fatal("expected an error")
	}

	applied, err := NewMigrationManagerFromPath(db, dir).GetAppliedMigrations()
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 0 {
		t.Errorf("broken migration recorded as applied: %v", applied)
	}
}
