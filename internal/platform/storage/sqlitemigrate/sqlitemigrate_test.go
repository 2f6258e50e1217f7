package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})
	return db
}

func countRows(t *testing.T, db *sql.DB, query string) int64 {
	t.Helper()
	var value int64
	if err := db.QueryRow(query).Scan(&value); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return value
}

func tableExists(t *testing.T, db *sql.DB, tableName string) bool {
	t.Helper()
	var name string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", tableName,
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		t.Fatalf("check table %q: %v", tableName, err)
	}
	return true
}

func TestApplyCreatesAndRecords(t *testing.T) {
	db := openInMemoryDB(t)

	migrations := fstest.MapFS{
		"001_packs.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREATE TABLE packs(id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE packs;"),
		},
	}

	if err := Apply(context.Background(), db, migrations); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if !tableExists(t, db, "packs") {
		t.Fatal("expected migrated table")
	}
	if tableExists(t, db, "nonexistent") {
		t.Fatal("table check helper is broken")
	}
	if got := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); got != 1 {
		t.Fatalf("expected 1 ledger row, got %d", got)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	db := openInMemoryDB(t)

	migrations := fstest.MapFS{
		"001_packs.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREATE TABLE packs(id TEXT PRIMARY KEY);"),
		},
	}

	for i := 0; i < 2; i++ {
		if err := Apply(context.Background(), db, migrations); err != nil {
			t.Fatalf("apply pass %d: %v", i+1, err)
		}
	}

	if got := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); got != 1 {
		t.Fatalf("expected single ledger row after replay, got %d", got)
	}
}

func TestApplyRunsInLexicalOrder(t *testing.T) {
	db := openInMemoryDB(t)

	// 002 references the table 001 creates; reversed order would fail.
	migrations := fstest.MapFS{
		"002_lore.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREATE TABLE lore(uid INTEGER PRIMARY KEY, pack_id TEXT REFERENCES packs(id));"),
		},
		"001_packs.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREATE TABLE packs(id TEXT PRIMARY KEY);"),
		},
	}

	if err := Apply(context.Background(), db, migrations); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !tableExists(t, db, "lore") {
		t.Fatal("expected second migration applied")
	}
}

func TestApplyDoesNotRecordFailure(t *testing.T) {
	db := openInMemoryDB(t)

	bad := fstest.MapFS{
		"001_bad.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREAT table broken(id INT);"),
		},
	}
	if err := Apply(context.Background(), db, bad); err == nil {
		t.Fatal("expected bad migration to fail")
	}
	if got := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); got != 0 {
		t.Fatalf("failed migration must stay unrecorded, got %d rows", got)
	}

	fixed := fstest.MapFS{
		"001_bad.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREATE TABLE broken(id INTEGER PRIMARY KEY);"),
		},
	}
	if err := Apply(context.Background(), db, fixed); err != nil {
		t.Fatalf("apply fixed migration: %v", err)
	}
	if got := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); got != 1 {
		t.Fatalf("expected fixed migration recorded, got %d rows", got)
	}
}

func TestApplySkipsEmptyUpSection(t *testing.T) {
	db := openInMemoryDB(t)

	migrations := fstest.MapFS{
		"001_noop.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\n\n-- +migrate Down\nDROP TABLE packs;"),
		},
	}

	if err := Apply(context.Background(), db, migrations); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); got != 0 {
		t.Fatalf("empty migration must not be recorded, got %d rows", got)
	}
}
