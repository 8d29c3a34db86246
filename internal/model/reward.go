package model

import "time"

// Reward is a catalog item unlocked by accumulating points.
type Reward struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	PointsRequired int       `json:"points_required"`
	CriteriaType   string    `json:"criteria_type"`
	CriteriaValue  int       `json:"criteria_value"`
	IsActive       bool      `json:"is_active"`
	SortOrder      int       `json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserRewardStatus only ever moves forward:
// locked → available → earned → fulfilled.
type UserRewardStatus string

const (
	UserRewardLocked    UserRewardStatus = "locked"
	UserRewardAvailable UserRewardStatus = "available"
	UserRewardEarned    UserRewardStatus = "earned"
	UserRewardFulfilled UserRewardStatus = "fulfilled"
)

// Rank orders statuses along the forward path. Unknown statuses rank -1.
func (s UserRewardStatus) Rank() int {
	switch s {
	case UserRewardLocked:
		return 0
	case UserRewardAvailable:
		return 1
	case UserRewardEarned:
		return 2
	case UserRewardFulfilled:
		return 3
	}
	return -1
}

// UserReward is a user's standing against one catalog reward.
type UserReward struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	RewardID    string           `json:"reward_id"`
	Status      UserRewardStatus `json:"status"`
	Progress    int              `json:"progress"`
	EarnedAt    *time.Time       `json:"earned_at,omitempty"`
	FulfilledAt *time.Time       `json:"fulfilled_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// RewardProgress returns min(100, points/required×100), or 0 when the reward
// has no points requirement.
func RewardProgress(points, required int) int {
	if required <= 0 || points <= 0 {
		return 0
	}
	p := points * 100 / required
	if p > 100 {
		return 100
	}
	return p
}

// EarningType distinguishes one-off signup fees from commission shares.
type EarningType string

const (
	EarningSignupFee       EarningType = "signup_fee"
	EarningCommissionShare EarningType = "commission_share"
)

// ReferralEarning is an additive credit to a referrer.
type ReferralEarning struct {
	ID              string      `json:"id"`
	ReferrerID      string      `json:"referrer_id"`
	ReferredAgentID string      `json:"referred_agent_id"`
	DealID          *string     `json:"deal_id,omitempty"`
	EarningType     EarningType `json:"earning_type"`
	EarningAmount   float64     `json:"earning_amount"`
	CreatedAt       time.Time   `json:"created_at"`
}

// AgentEarnings rolls up what one referred agent has produced.
type AgentEarnings struct {
	AgentID  string  `json:"agent_id"`
	Total    float64 `json:"total"`
	Earnings int     `json:"earnings"`
}

// ReferralSummary is computed on demand; nothing here is stored.
type ReferralSummary struct {
	LifetimeEarnings  float64         `json:"lifetime_earnings"`
	ThisMonthEarnings float64         `json:"this_month_earnings"`
	SignupFees        float64         `json:"signup_fees"`
	CommissionShares  float64         `json:"commission_shares"`
	ReferredAgents    int             `json:"referred_agents"`
	Agents            []AgentEarnings `json:"agents"`
}

// RewardStanding pairs a catalog reward with the user's progress toward it.
type RewardStanding struct {
	Reward   Reward           `json:"reward"`
	Status   UserRewardStatus `json:"status"`
	Progress int              `json:"progress"`
}
