// Package db provides database initialization and access for the CRM's
// durable store. SQLite is the default; Postgres is available through pgx.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/mattn/go-sqlite3"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// DB wraps *sql.DB with the driver name so queries written with "?"
// placeholders run on either backend.
type DB struct {
	*sql.DB
	driver string
}

// DefaultPath returns the default database path: ~/.estate-crm/crm.db
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".estate-crm", "crm.db"), nil
}

// Open opens (or creates) a SQLite database at the given path,
// enables WAL mode and foreign keys, and runs migrations.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return OpenDriver(DriverSQLite, path)
}

// OpenDriver opens a database for the given driver and DSN and runs
// migrations. For sqlite3 the DSN is a file path.
func OpenDriver(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	d := &DB{DB: sqlDB, driver: driver}
	if driver == DriverSQLite {
		// One connection keeps the per-connection pragmas below in effect
		// for every query.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := d.configure(); err != nil {
		closeErr := sqlDB.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("%w (also failed to close: %v)", err, closeErr)
		}
		return nil, err
	}

	if err := d.migrate(); err != nil {
		closeErr := sqlDB.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (also failed to close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// Driver returns the driver name the database was opened with.
func (d *DB) Driver() string { return d.driver }

// Rebind rewrites "?" placeholders into the form the driver expects.
func (d *DB) Rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}

	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// configure sets SQLite pragmas for WAL mode and foreign keys.
func (d *DB) configure() error {
	if d.driver != DriverSQLite {
		return d.Ping()
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}

	for _, p := range pragmas {
		if _, err := d.Exec(p); err != nil {
			return fmt.Errorf("executing %s: %w", p, err)
		}
	}

	return nil
}
