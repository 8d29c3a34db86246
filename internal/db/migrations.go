package db

import (
	"fmt"
	"strings"
)

// migrations is an ordered list of SQL statements to run.
// Column types are written for SQLite and translated by ddl for Postgres.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT      PRIMARY KEY,
		email         TEXT      NOT NULL UNIQUE,
		full_name     TEXT      NOT NULL DEFAULT '',
		role          TEXT      NOT NULL DEFAULT 'user',
		status        TEXT      NOT NULL DEFAULT 'active',
		password_hash TEXT      NOT NULL,
		last_login    TIMESTAMP,
		created_at    TIMESTAMP NOT NULL,
		updated_at    TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT      PRIMARY KEY,
		user_id    TEXT      NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS properties (
		id          TEXT             PRIMARY KEY,
		title       TEXT             NOT NULL,
		description TEXT,
		type        TEXT             NOT NULL,
		status      TEXT             NOT NULL,
		price       DOUBLE PRECISION NOT NULL DEFAULT 0,
		location    TEXT             NOT NULL DEFAULT '',
		area        DOUBLE PRECISION NOT NULL DEFAULT 0,
		bedrooms    INTEGER,
		bathrooms   INTEGER,
		images      TEXT             NOT NULL DEFAULT '[]',
		videos      TEXT             NOT NULL DEFAULT '[]',
		documents   TEXT             NOT NULL DEFAULT '[]',
		features    TEXT             NOT NULL DEFAULT '[]',
		owner_name  TEXT             NOT NULL DEFAULT '',
		owner_phone TEXT             NOT NULL DEFAULT '',
		owner_email TEXT             NOT NULL DEFAULT '',
		created_by  TEXT             NOT NULL,
		created_at  TIMESTAMP        NOT NULL,
		updated_at  TIMESTAMP        NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id                 TEXT             PRIMARY KEY,
		name               TEXT             NOT NULL,
		email              TEXT             NOT NULL DEFAULT '',
		phone              TEXT             NOT NULL DEFAULT '',
		source             TEXT             NOT NULL DEFAULT '',
		status             TEXT             NOT NULL,
		budget_min         DOUBLE PRECISION,
		budget_max         DOUBLE PRECISION,
		preferred_type     TEXT,
		preferred_location TEXT,
		notes              TEXT             NOT NULL DEFAULT '',
		assigned_to        TEXT,
		created_by         TEXT             NOT NULL,
		created_at         TIMESTAMP        NOT NULL,
		updated_at         TIMESTAMP        NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_owner ON leads (created_by, assigned_to)`,
	`CREATE TABLE IF NOT EXISTS deals (
		id                TEXT             PRIMARY KEY,
		property_id       TEXT             NOT NULL,
		lead_id           TEXT,
		deal_value        DOUBLE PRECISION NOT NULL DEFAULT 0,
		commission_rate   DOUBLE PRECISION NOT NULL DEFAULT 0,
		commission_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		status            TEXT             NOT NULL,
		closer_id         TEXT             NOT NULL DEFAULT '',
		closed_at         TIMESTAMP,
		notes             TEXT             NOT NULL DEFAULT '',
		created_by        TEXT,
		created_at        TIMESTAMP        NOT NULL,
		updated_at        TIMESTAMP        NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS activities (
		id          TEXT      PRIMARY KEY,
		user_id     TEXT      NOT NULL,
		action      TEXT      NOT NULL,
		entity_type TEXT      NOT NULL,
		entity_id   TEXT      NOT NULL,
		entity_name TEXT      NOT NULL DEFAULT '',
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_user ON activities (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          TEXT      PRIMARY KEY,
		user_id     TEXT      NOT NULL,
		action      TEXT      NOT NULL,
		entity_type TEXT      NOT NULL,
		entity_id   TEXT      NOT NULL,
		old_value   TEXT,
		new_value   TEXT,
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs (created_at)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id           TEXT      PRIMARY KEY,
		type         TEXT      NOT NULL,
		title        TEXT      NOT NULL,
		message      TEXT      NOT NULL DEFAULT '',
		priority     TEXT      NOT NULL DEFAULT 'medium',
		recipient_id TEXT      NOT NULL,
		sender_id    TEXT,
		entity_type  TEXT,
		entity_id    TEXT,
		read         BOOLEAN   NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient_id)`,
	`CREATE TABLE IF NOT EXISTS announcements (
		id         TEXT      PRIMARY KEY,
		title      TEXT      NOT NULL,
		message    TEXT      NOT NULL DEFAULT '',
		priority   TEXT      NOT NULL DEFAULT 'medium',
		created_by TEXT      NOT NULL,
		expires_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rewards (
		id              TEXT      PRIMARY KEY,
		title           TEXT      NOT NULL,
		description     TEXT      NOT NULL DEFAULT '',
		category        TEXT      NOT NULL DEFAULT '',
		points_required INTEGER   NOT NULL DEFAULT 0,
		criteria_type   TEXT      NOT NULL DEFAULT 'points',
		criteria_value  INTEGER   NOT NULL DEFAULT 0,
		is_active       BOOLEAN   NOT NULL DEFAULT TRUE,
		sort_order      INTEGER   NOT NULL DEFAULT 0,
		created_at      TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_rewards (
		id           TEXT      PRIMARY KEY,
		user_id      TEXT      NOT NULL,
		reward_id    TEXT      NOT NULL REFERENCES rewards(id) ON DELETE CASCADE,
		status       TEXT      NOT NULL DEFAULT 'locked',
		progress     INTEGER   NOT NULL DEFAULT 0,
		earned_at    TIMESTAMP,
		fulfilled_at TIMESTAMP,
		created_at   TIMESTAMP NOT NULL,
		updated_at   TIMESTAMP NOT NULL,
		UNIQUE (user_id, reward_id)
	)`,
	`CREATE TABLE IF NOT EXISTS referral_earnings (
		id                TEXT             PRIMARY KEY,
		referrer_id       TEXT             NOT NULL,
		referred_agent_id TEXT             NOT NULL,
		deal_id           TEXT,
		earning_type      TEXT             NOT NULL,
		earning_amount    DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at        TIMESTAMP        NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_referral_earnings_referrer ON referral_earnings (referrer_id)`,
}

// migrate runs all migrations in order.
func (d *DB) migrate() error {
	for i, m := range migrations {
		if _, err := d.Exec(d.ddl(m)); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Additive columns; each is skipped when already present.
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"users", "avatar", "TEXT"},
		{"users", "phone", "TEXT"},
	}

	for _, cm := range columnMigrations {
		if err := d.addColumnIfNotExists(cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// ddl translates SQLite column types for the active driver.
func (d *DB) ddl(stmt string) string {
	if d.driver != DriverPostgres {
		return stmt
	}
	return strings.ReplaceAll(stmt, "TIMESTAMP", "TIMESTAMPTZ")
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func (d *DB) addColumnIfNotExists(table, column, definition string) error {
	if d.driver == DriverPostgres {
		_, err := d.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", table, column, d.ddl(definition)))
		return err
	}

	exists, err := d.hasColumn(table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = d.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

func (d *DB) hasColumn(table, column string) (found bool, err error) {
	rows, err := d.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterating columns: %w", err)
	}
	return false, nil
}
