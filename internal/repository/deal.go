package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/model"
)

// DealRepository provides create, read and update for deals. Deals are never
// removed; cancellation is a status change.
type DealRepository struct {
	db *db.DB
}

// NewDealRepository creates a deal repository.
func NewDealRepository(d *db.DB) *DealRepository {
	return &DealRepository{db: d}
}

const dealColumns = `id, property_id, lead_id, deal_value, commission_rate, commission_amount, status,
	closer_id, closed_at, notes, created_by, created_at, updated_at`

func scanDeal(row scanner) (model.Deal, error) {
	var d model.Deal
	var leadID, createdBy sql.NullString
	var closedAt sql.NullTime

	err := row.Scan(
		&d.ID, &d.PropertyID, &leadID, &d.DealValue, &d.CommissionRate, &d.CommissionAmount,
		&d.Status, &d.CloserID, &closedAt, &d.Notes, &createdBy, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return model.Deal{}, err
	}

	d.LeadID = nullString(leadID)
	d.CreatedBy = nullString(createdBy)
	d.ClosedAt = nullTime(closedAt)
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()

	return d, nil
}

// GetAll returns every deal, newest first.
func (r *DealRepository) GetAll(ctx context.Context) ([]model.Deal, error) {
	deals, err := queryAll(ctx, r.db, scanDeal,
		"SELECT "+dealColumns+" FROM deals ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("listing deals: %w", err)
	}
	return deals, nil
}

// GetByUser returns the deals visible to the user. The pipeline is shared, so
// every role sees every deal.
func (r *DealRepository) GetByUser(ctx context.Context, userID string, isAdmin bool) ([]model.Deal, error) {
	return r.GetAll(ctx)
}

// GetByID returns a deal by its ID.
func (r *DealRepository) GetByID(ctx context.Context, id string) (model.Deal, error) {
	return queryOne(ctx, r.db, scanDeal, "deal "+id,
		"SELECT "+dealColumns+" FROM deals WHERE id = ?", id)
}

// Create inserts a new deal and returns it with its generated ID.
func (r *DealRepository) Create(ctx context.Context, d model.Deal) (model.Deal, error) {
	if d.PropertyID == "" {
		return model.Deal{}, fmt.Errorf("%w: property_id is required", ErrInvalid)
	}
	if d.Status == "" {
		d.Status = model.DealStatusPending
	}
	if !model.ValidDealStatus(string(d.Status)) {
		return model.Deal{}, fmt.Errorf("%w: unknown deal status %q", ErrInvalid, d.Status)
	}

	d.ID = newID()
	ts := now()

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO deals (`+dealColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		d.ID, d.PropertyID, d.LeadID, d.DealValue, d.CommissionRate, d.CommissionAmount,
		d.Status, d.CloserID, utcPtr(d.ClosedAt), d.Notes, d.CreatedBy, ts, ts,
	)
	if err != nil {
		return model.Deal{}, fmt.Errorf("inserting deal: %w", err)
	}

	return r.GetByID(ctx, d.ID)
}

// Update applies a partial update and returns the stored result.
func (r *DealRepository) Update(ctx context.Context, id string, patch model.DealPatch) (model.Deal, error) {
	var s setter
	if patch.PropertyID != nil {
		s.set("property_id", *patch.PropertyID)
	}
	if patch.LeadID != nil {
		s.set("lead_id", *patch.LeadID)
	}
	if patch.DealValue != nil {
		s.set("deal_value", *patch.DealValue)
	}
	if patch.CommissionRate != nil {
		s.set("commission_rate", *patch.CommissionRate)
	}
	if patch.CommissionAmount != nil {
		s.set("commission_amount", *patch.CommissionAmount)
	}
	if patch.Status != nil {
		if !model.ValidDealStatus(string(*patch.Status)) {
			return model.Deal{}, fmt.Errorf("%w: unknown deal status %q", ErrInvalid, *patch.Status)
		}
		s.set("status", *patch.Status)
	}
	if patch.CloserID != nil {
		s.set("closer_id", *patch.CloserID)
	}
	if patch.ClosedAt != nil {
		s.set("closed_at", patch.ClosedAt.UTC())
	}
	if patch.Notes != nil {
		s.set("notes", *patch.Notes)
	}
	s.set("updated_at", now())

	if err := s.exec(ctx, r.db, "deals", id); err != nil {
		return model.Deal{}, err
	}
	return r.GetByID(ctx, id)
}
