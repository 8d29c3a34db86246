package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "crm", "crm.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crm.db")
	now := time.Now().UTC()

	d, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = d.Exec(d.Rebind(`INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`), "u1", "agent@example.com", "x", now, now)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	d, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	}()

	var role, status string
	if err := d.QueryRow("SELECT role, status FROM users WHERE id = ?", "u1").Scan(&role, &status); err != nil {
		t.Fatalf("select user: %v", err)
	}
	if role != "user" || status != "active" {
		t.Errorf("defaults = %q/%q, want user/active", role, status)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	d := openTestDB(t)
	now := time.Now().UTC()
	_, err := d.Exec("INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)",
		"s1", "missing-user", now, now)
	if err == nil {
		t.Error("expected foreign key violation for a session without a user")
	}
}

func TestOpenDriverUnsupported(t *testing.T) {
	if _, err := OpenDriver("mysql", "whatever"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestWALMode(t *testing.T) {
	d := openTestDB(t)

	var mode string
	if err := d.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}
}

func TestMigrations(t *testing.T) {
	d := openTestDB(t)

	tables := []string{
		"users", "sessions", "properties", "leads", "deals", "activities",
		"audit_logs", "notifications", "announcements", "rewards",
		"user_rewards", "referral_earnings",
	}
	for _, table := range tables {
		var name string
		err := d.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	for _, col := range []string{"avatar", "phone"} {
		ok, err := d.hasColumn("users", col)
		if err != nil {
			t.Fatalf("has column: %v", err)
		}
		if !ok {
			t.Errorf("users.%s missing", col)
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	d := openTestDB(t)

	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM leads WHERE created_by = ? OR assigned_to = ?"

	sqlite := &DB{driver: DriverSQLite}
	if got := sqlite.Rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}

	pg := &DB{driver: DriverPostgres}
	want := "SELECT * FROM leads WHERE created_by = $1 OR assigned_to = $2"
	if got := pg.Rebind(q); got != want {
		t.Errorf("pg rebind = %q, want %q", got, want)
	}
}

func TestDDLPostgres(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	got := pg.ddl("created_at TIMESTAMP NOT NULL")
	if !strings.Contains(got, "TIMESTAMPTZ") {
		t.Errorf("ddl = %q, want TIMESTAMPTZ", got)
	}
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("default path: %v", err)
	}
	if filepath.Base(path) != "crm.db" {
		t.Errorf("base = %q, want crm.db", filepath.Base(path))
	}
	if filepath.Base(filepath.Dir(path)) != ".estate-crm" {
		t.Errorf("dir = %q, want .estate-crm", filepath.Dir(path))
	}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return d
}
