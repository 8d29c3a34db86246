package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/model"
)

// LeadRepository provides CRUD operations for leads.
type LeadRepository struct {
	db *db.DB
}

// NewLeadRepository creates a lead repository.
func NewLeadRepository(d *db.DB) *LeadRepository {
	return &LeadRepository{db: d}
}

const leadColumns = `id, name, email, phone, source, status, budget_min, budget_max, preferred_type,
	preferred_location, notes, assigned_to, created_by, created_at, updated_at`

func scanLead(row scanner) (model.Lead, error) {
	var l model.Lead
	var budgetMin, budgetMax sql.NullFloat64
	var preferredType, preferredLocation, assignedTo sql.NullString

	err := row.Scan(
		&l.ID, &l.Name, &l.Email, &l.Phone, &l.Source, &l.Status, &budgetMin, &budgetMax,
		&preferredType, &preferredLocation, &l.Notes, &assignedTo, &l.CreatedBy,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return model.Lead{}, err
	}

	l.BudgetMin = nullFloat(budgetMin)
	l.BudgetMax = nullFloat(budgetMax)
	if preferredType.Valid {
		pt := model.PropertyType(preferredType.String)
		l.PreferredType = &pt
	}
	l.PreferredLocation = nullString(preferredLocation)
	l.AssignedTo = nullString(assignedTo)
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()

	return l, nil
}

// GetAll returns every lead, newest first.
func (r *LeadRepository) GetAll(ctx context.Context) ([]model.Lead, error) {
	leads, err := queryAll(ctx, r.db, scanLead,
		"SELECT "+leadColumns+" FROM leads ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("listing leads: %w", err)
	}
	return leads, nil
}

// GetByUser returns all leads for admins; other users only get leads they
// created or that are assigned to them.
func (r *LeadRepository) GetByUser(ctx context.Context, userID string, isAdmin bool) ([]model.Lead, error) {
	if isAdmin {
		return r.GetAll(ctx)
	}

	leads, err := queryAll(ctx, r.db, scanLead,
		"SELECT "+leadColumns+" FROM leads WHERE created_by = ? OR assigned_to = ? ORDER BY created_at DESC",
		userID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing leads for %s: %w", userID, err)
	}
	return leads, nil
}

// GetByID returns a lead by its ID.
func (r *LeadRepository) GetByID(ctx context.Context, id string) (model.Lead, error) {
	return queryOne(ctx, r.db, scanLead, "lead "+id,
		"SELECT "+leadColumns+" FROM leads WHERE id = ?", id)
}

// Create inserts a new lead and returns it with its generated ID.
func (r *LeadRepository) Create(ctx context.Context, l model.Lead) (model.Lead, error) {
	if l.Name == "" {
		return model.Lead{}, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if l.CreatedBy == "" {
		return model.Lead{}, fmt.Errorf("%w: created_by is required", ErrInvalid)
	}
	if l.Status == "" {
		l.Status = model.LeadStatusNew
	}
	if !model.ValidLeadStatus(string(l.Status)) {
		return model.Lead{}, fmt.Errorf("%w: unknown lead status %q", ErrInvalid, l.Status)
	}

	l.ID = newID()
	ts := now()

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO leads (`+leadColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		l.ID, l.Name, l.Email, l.Phone, l.Source, l.Status, l.BudgetMin, l.BudgetMax,
		l.PreferredType, l.PreferredLocation, l.Notes, l.AssignedTo, l.CreatedBy, ts, ts,
	)
	if err != nil {
		return model.Lead{}, fmt.Errorf("inserting lead: %w", err)
	}

	return r.GetByID(ctx, l.ID)
}

// Update applies a partial update and returns the stored result.
func (r *LeadRepository) Update(ctx context.Context, id string, patch model.LeadPatch) (model.Lead, error) {
	var s setter
	if patch.Name != nil {
		s.set("name", *patch.Name)
	}
	if patch.Email != nil {
		s.set("email", *patch.Email)
	}
	if patch.Phone != nil {
		s.set("phone", *patch.Phone)
	}
	if patch.Source != nil {
		s.set("source", *patch.Source)
	}
	if patch.Status != nil {
		if !model.ValidLeadStatus(string(*patch.Status)) {
			return model.Lead{}, fmt.Errorf("%w: unknown lead status %q", ErrInvalid, *patch.Status)
		}
		s.set("status", *patch.Status)
	}
	if patch.BudgetMin != nil {
		s.set("budget_min", *patch.BudgetMin)
	}
	if patch.BudgetMax != nil {
		s.set("budget_max", *patch.BudgetMax)
	}
	if patch.PreferredType != nil {
		s.set("preferred_type", *patch.PreferredType)
	}
	if patch.PreferredLocation != nil {
		s.set("preferred_location", *patch.PreferredLocation)
	}
	if patch.Notes != nil {
		s.set("notes", *patch.Notes)
	}
	if patch.AssignedTo != nil {
		// An empty assignee clears the assignment.
		if *patch.AssignedTo == "" {
			s.set("assigned_to", nil)
		} else {
			s.set("assigned_to", *patch.AssignedTo)
		}
	}
	s.set("updated_at", now())

	if err := s.exec(ctx, r.db, "leads", id); err != nil {
		return model.Lead{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a lead by ID.
func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM leads WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("deleting lead: %w", err)
	}
	return requireRow(result, "leads", id)
}
