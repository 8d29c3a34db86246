// Package repository provides durable CRUD for every CRM entity. It is the
// persistence side of the remote store that the API server exposes.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/model"
)

var (
	// ErrNotFound is returned when no row matches the requested id.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("already exists")
	// ErrConflict is returned when a conditional update matched nothing
	// because the row is not in a state the update applies to.
	ErrConflict = model.ErrConflict
	// ErrInvalid is returned when input fails validation.
	ErrInvalid = errors.New("invalid input")
)

// now is the clock used for server-assigned timestamps.
var now = func() time.Time { return time.Now().UTC() }

func newID() string { return uuid.NewString() }

type scanner interface {
	Scan(dest ...interface{}) error
}

// queryAll runs query and scans every row with scan.
func queryAll[T any](ctx context.Context, d *db.DB, scan func(scanner) (T, error), query string, args ...interface{}) (items []T, err error) {
	rows, err := d.QueryContext(ctx, d.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	items = []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return items, nil
}

// queryOne runs query and scans a single row, mapping sql.ErrNoRows to ErrNotFound.
func queryOne[T any](ctx context.Context, d *db.DB, scan func(scanner) (T, error), what, query string, args ...interface{}) (T, error) {
	item, err := scan(d.QueryRowContext(ctx, d.Rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("querying %s: %w", what, err)
	}
	return item, nil
}

// setter accumulates "col = ?" clauses for partial updates.
type setter struct {
	cols []string
	args []interface{}
	err  error
}

func (s *setter) set(col string, v interface{}) {
	s.cols = append(s.cols, col+" = ?")
	s.args = append(s.args, v)
}

func (s *setter) setJSON(col string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		if s.err == nil {
			s.err = fmt.Errorf("encoding %s: %w", col, err)
		}
		return
	}
	s.set(col, string(data))
}

// exec applies the accumulated clauses to the row with the given id.
func (s *setter) exec(ctx context.Context, d *db.DB, table, id string) error {
	if s.err != nil {
		return s.err
	}
	if len(s.cols) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(s.cols, ", "))
	result, err := d.ExecContext(ctx, d.Rebind(query), append(s.args, id)...)
	if err != nil {
		return fmt.Errorf("updating %s: %w", table, err)
	}
	return requireRow(result, table, id)
}

// requireRow turns a zero rows-affected result into ErrNotFound.
func requireRow(result sql.Result, table, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), id, ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE") || strings.Contains(msg, "duplicate key")
}

func encodeJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

func nullInt(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	i := int(ni.Int64)
	return &i
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func utcPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
