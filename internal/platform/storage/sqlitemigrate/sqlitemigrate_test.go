package sqlitemigrate

import (
	"database/sql"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", t.TempDir()+"/migrate.db")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestApplyMigrationsRunsInOrder(t *testing.T) {
	sqlDB := openTestDB(t)

	migrationFS := fstest.MapFS{
		"0002_add_column.sql": {Data: []byte("ALTER TABLE things ADD COLUMN label TEXT;")},
		"0001_init.sql":       {Data: []byte("CREATE TABLE things (id TEXT PRIMARY KEY);")},
	}

	if err := ApplyMigrations(sqlDB, migrationFS); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if _, err := sqlDB.Exec("INSERT INTO things (id, label) VALUES ('a', 'b')"); err != nil {
		t.Fatalf("expected both migrations applied: %v", err)
	}
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	sqlDB := openTestDB(t)

	migrationFS := fstest.MapFS{
		"0001_init.sql": {Data: []byte("CREATE TABLE things (id TEXT PRIMARY KEY);")},
	}

	if err := ApplyMigrations(sqlDB, migrationFS); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := ApplyMigrations(sqlDB, migrationFS); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	var count int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 recorded migration, got %d", count)
	}
}

func TestApplyMigrationsRejectsNilDB(t *testing.T) {
	if err := ApplyMigrations(nil, fstest.MapFS{}); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestApplyMigrationsRollsBackOnFailure(t *testing.T) {
	sqlDB := openTestDB(t)

	migrationFS := fstest.MapFS{
		"0001_bad.sql": {Data: []byte("CREATE TABLE broken (;")},
	}

	if err := ApplyMigrations(sqlDB, migrationFS); err == nil {
		t.Fatal("expected error for malformed migration")
	}

	var count int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no recorded migrations, got %d", count)
	}
}
