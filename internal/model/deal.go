package model

import "time"

// DealStatus tracks a deal from opening to closing or cancellation.
type DealStatus string

const (
	DealStatusPending    DealStatus = "pending"
	DealStatusInProgress DealStatus = "in_progress"
	DealStatusClosed     DealStatus = "closed"
	DealStatusCancelled  DealStatus = "cancelled"
)

// ValidDealStatus returns true if s is a known deal status.
func ValidDealStatus(s string) bool {
	switch DealStatus(s) {
	case DealStatusPending, DealStatusInProgress, DealStatusClosed, DealStatusCancelled:
		return true
	}
	return false
}

// Deal links a property (and optionally a lead) to a transaction.
// CommissionAmount is supplied by the caller and stored as given.
type Deal struct {
	ID               string     `json:"id"`
	PropertyID       string     `json:"property_id"`
	LeadID           *string    `json:"lead_id,omitempty"`
	DealValue        float64    `json:"deal_value"`
	CommissionRate   float64    `json:"commission_rate"`
	CommissionAmount float64    `json:"commission_amount"`
	Status           DealStatus `json:"status"`
	CloserID         string     `json:"closer_id"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
	Notes            string     `json:"notes"`
	CreatedBy        *string    `json:"created_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CommissionFor returns value × rate / 100.
func CommissionFor(value, ratePercent float64) float64 {
	return value * ratePercent / 100
}

// DealPatch is a partial update. Nil fields are left untouched.
type DealPatch struct {
	PropertyID       *string     `json:"property_id,omitempty"`
	LeadID           *string     `json:"lead_id,omitempty"`
	DealValue        *float64    `json:"deal_value,omitempty"`
	CommissionRate   *float64    `json:"commission_rate,omitempty"`
	CommissionAmount *float64    `json:"commission_amount,omitempty"`
	Status           *DealStatus `json:"status,omitempty"`
	CloserID         *string     `json:"closer_id,omitempty"`
	ClosedAt         *time.Time  `json:"closed_at,omitempty"`
	Notes            *string     `json:"notes,omitempty"`
}
