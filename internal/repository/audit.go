package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/model"
)

// AuditRepository stores the append-only audit trail.
type AuditRepository struct {
	db *db.DB
}

// NewAuditRepository creates an audit repository.
func NewAuditRepository(d *db.DB) *AuditRepository {
	return &AuditRepository{db: d}
}

const auditColumns = `id, user_id, action, entity_type, entity_id, old_value, new_value, created_at`

func scanAudit(row scanner) (model.AuditLog, error) {
	var a model.AuditLog
	var oldValue, newValue sql.NullString

	if err := row.Scan(&a.ID, &a.UserID, &a.Action, &a.EntityType, &a.EntityID, &oldValue, &newValue, &a.CreatedAt); err != nil {
		return model.AuditLog{}, err
	}
	a.CreatedAt = a.CreatedAt.UTC()

	var err error
	if a.OldValue, err = model.DecodeSnapshot(a.EntityType, []byte(oldValue.String)); err != nil {
		return model.AuditLog{}, fmt.Errorf("decoding old_value: %w", err)
	}
	if a.NewValue, err = model.DecodeSnapshot(a.EntityType, []byte(newValue.String)); err != nil {
		return model.AuditLog{}, fmt.Errorf("decoding new_value: %w", err)
	}
	return a, nil
}

// List returns up to limit audit entries, newest first.
func (r *AuditRepository) List(ctx context.Context, limit int) ([]model.AuditLog, error) {
	if limit <= 0 || limit > model.AuditLogLimit {
		limit = model.AuditLogLimit
	}
	logs, err := queryAll(ctx, r.db, scanAudit,
		"SELECT "+auditColumns+" FROM audit_logs ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit logs: %w", err)
	}
	return logs, nil
}

// Create appends an audit entry and returns it as stored.
func (r *AuditRepository) Create(ctx context.Context, a model.AuditLog) (model.AuditLog, error) {
	if a.Action == "" {
		return model.AuditLog{}, fmt.Errorf("%w: action is required", ErrInvalid)
	}

	oldValue, err := snapshotColumn(a.OldValue)
	if err != nil {
		return model.AuditLog{}, fmt.Errorf("encoding old_value: %w", err)
	}
	newValue, err := snapshotColumn(a.NewValue)
	if err != nil {
		return model.AuditLog{}, fmt.Errorf("encoding new_value: %w", err)
	}

	a.ID = newID()
	a.CreatedAt = now()

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO audit_logs (`+auditColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		a.ID, a.UserID, a.Action, a.EntityType, a.EntityID, oldValue, newValue, a.CreatedAt,
	)
	if err != nil {
		return model.AuditLog{}, fmt.Errorf("inserting audit log: %w", err)
	}
	return a, nil
}

func snapshotColumn(s model.Snapshot) (interface{}, error) {
	if s == nil {
		return nil, nil
	}
	return encodeJSON(s)
}
