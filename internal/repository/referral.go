package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/model"
)

// ReferralRepository stores referral earnings.
type ReferralRepository struct {
	db *db.DB
}

// NewReferralRepository creates a referral repository.
func NewReferralRepository(d *db.DB) *ReferralRepository {
	return &ReferralRepository{db: d}
}

const referralColumns = `id, referrer_id, referred_agent_id, deal_id, earning_type, earning_amount, created_at`

func scanReferral(row scanner) (model.ReferralEarning, error) {
	var e model.ReferralEarning
	var dealID sql.NullString

	err := row.Scan(&e.ID, &e.ReferrerID, &e.ReferredAgentID, &dealID, &e.EarningType,
		&e.EarningAmount, &e.CreatedAt)
	if err != nil {
		return model.ReferralEarning{}, err
	}
	e.DealID = nullString(dealID)
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

// GetForReferrer returns every earning credited to the referrer, newest first.
func (r *ReferralRepository) GetForReferrer(ctx context.Context, referrerID string) ([]model.ReferralEarning, error) {
	earnings, err := queryAll(ctx, r.db, scanReferral,
		"SELECT "+referralColumns+" FROM referral_earnings WHERE referrer_id = ? ORDER BY created_at DESC",
		referrerID)
	if err != nil {
		return nil, fmt.Errorf("listing referral earnings: %w", err)
	}
	return earnings, nil
}

// Create records a referral earning.
func (r *ReferralRepository) Create(ctx context.Context, e model.ReferralEarning) (model.ReferralEarning, error) {
	if e.ReferrerID == "" || e.ReferredAgentID == "" {
		return model.ReferralEarning{}, fmt.Errorf("%w: referrer_id and referred_agent_id are required", ErrInvalid)
	}
	switch e.EarningType {
	case model.EarningSignupFee, model.EarningCommissionShare:
	default:
		return model.ReferralEarning{}, fmt.Errorf("%w: unknown earning type %q", ErrInvalid, e.EarningType)
	}

	e.ID = newID()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO referral_earnings (`+referralColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.ReferrerID, e.ReferredAgentID, e.DealID, e.EarningType, e.EarningAmount, e.CreatedAt,
	)
	if err != nil {
		return model.ReferralEarning{}, fmt.Errorf("inserting referral earning: %w", err)
	}
	return e, nil
}
