package repository

import (
	"context"
	"fmt"

	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/model"
)

// StatsRepository computes dashboard aggregates.
type StatsRepository struct {
	db *db.DB
}

// NewStatsRepository creates a stats repository.
func NewStatsRepository(d *db.DB) *StatsRepository {
	return &StatsRepository{db: d}
}

// Stats computes dashboard counters. Lead counts are scoped to the user's
// visible leads unless isAdmin is set.
func (r *StatsRepository) Stats(ctx context.Context, userID string, isAdmin bool) (model.Stats, error) {
	var s model.Stats

	err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM properties`), model.PropertyStatusAvailable,
	).Scan(&s.TotalProperties, &s.AvailableProperties)
	if err != nil {
		return model.Stats{}, fmt.Errorf("counting properties: %w", err)
	}

	leadQuery := `SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) FROM leads`
	leadArgs := []interface{}{model.LeadStatusNew}
	if !isAdmin {
		leadQuery += ` WHERE created_by = ? OR assigned_to = ?`
		leadArgs = append(leadArgs, userID, userID)
	}
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(leadQuery), leadArgs...).Scan(&s.TotalLeads, &s.NewLeads); err != nil {
		return model.Stats{}, fmt.Errorf("counting leads: %w", err)
	}

	err = r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT
			COALESCE(SUM(CASE WHEN status IN (?, ?) THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN deal_value ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN commission_amount ELSE 0 END), 0)
		FROM deals`),
		model.DealStatusPending, model.DealStatusInProgress,
		model.DealStatusClosed, model.DealStatusClosed, model.DealStatusClosed,
	).Scan(&s.ActiveDeals, &s.ClosedDeals, &s.TotalRevenue, &s.TotalCommission)
	if err != nil {
		return model.Stats{}, fmt.Errorf("summing deals: %w", err)
	}

	return s, nil
}
