package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/model"
)

// RewardRepository stores the reward catalog and each user's standing in it.
type RewardRepository struct {
	db *db.DB
}

// NewRewardRepository creates a reward repository.
func NewRewardRepository(d *db.DB) *RewardRepository {
	return &RewardRepository{db: d}
}

const rewardColumns = `id, title, description, category, points_required, criteria_type, criteria_value,
	is_active, sort_order, created_at`

const userRewardColumns = `id, user_id, reward_id, status, progress, earned_at, fulfilled_at, created_at, updated_at`

func scanReward(row scanner) (model.Reward, error) {
	var rw model.Reward
	err := row.Scan(&rw.ID, &rw.Title, &rw.Description, &rw.Category, &rw.PointsRequired,
		&rw.CriteriaType, &rw.CriteriaValue, &rw.IsActive, &rw.SortOrder, &rw.CreatedAt)
	if err != nil {
		return model.Reward{}, err
	}
	rw.CreatedAt = rw.CreatedAt.UTC()
	return rw, nil
}

func scanUserReward(row scanner) (model.UserReward, error) {
	var ur model.UserReward
	var earnedAt, fulfilledAt sql.NullTime

	err := row.Scan(&ur.ID, &ur.UserID, &ur.RewardID, &ur.Status, &ur.Progress,
		&earnedAt, &fulfilledAt, &ur.CreatedAt, &ur.UpdatedAt)
	if err != nil {
		return model.UserReward{}, err
	}
	ur.EarnedAt = nullTime(earnedAt)
	ur.FulfilledAt = nullTime(fulfilledAt)
	ur.CreatedAt = ur.CreatedAt.UTC()
	ur.UpdatedAt = ur.UpdatedAt.UTC()
	return ur, nil
}

// GetAll returns the active reward catalog in display order.
func (r *RewardRepository) GetAll(ctx context.Context) ([]model.Reward, error) {
	rewards, err := queryAll(ctx, r.db, scanReward,
		"SELECT "+rewardColumns+" FROM rewards WHERE is_active = ? ORDER BY sort_order, title", true)
	if err != nil {
		return nil, fmt.Errorf("listing rewards: %w", err)
	}
	return rewards, nil
}

// Create adds a reward to the catalog.
func (r *RewardRepository) Create(ctx context.Context, rw model.Reward) (model.Reward, error) {
	if rw.Title == "" {
		return model.Reward{}, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if rw.CriteriaType == "" {
		rw.CriteriaType = "points"
	}

	rw.ID = newID()
	rw.CreatedAt = now()

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO rewards (`+rewardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rw.ID, rw.Title, rw.Description, rw.Category, rw.PointsRequired, rw.CriteriaType,
		rw.CriteriaValue, rw.IsActive, rw.SortOrder, rw.CreatedAt,
	)
	if err != nil {
		return model.Reward{}, fmt.Errorf("inserting reward: %w", err)
	}
	return rw, nil
}

// GetUserRewards returns the user's standing for every reward they have a row for.
func (r *RewardRepository) GetUserRewards(ctx context.Context, userID string) ([]model.UserReward, error) {
	rewards, err := queryAll(ctx, r.db, scanUserReward,
		"SELECT "+userRewardColumns+" FROM user_rewards WHERE user_id = ? ORDER BY created_at",
		userID)
	if err != nil {
		return nil, fmt.Errorf("listing user rewards: %w", err)
	}
	return rewards, nil
}

// UpsertUserReward inserts or replaces the user's standing for one reward.
// Transition rules are enforced by the caller.
func (r *RewardRepository) UpsertUserReward(ctx context.Context, ur model.UserReward) (model.UserReward, error) {
	if ur.UserID == "" || ur.RewardID == "" {
		return model.UserReward{}, fmt.Errorf("%w: user_id and reward_id are required", ErrInvalid)
	}
	if ur.Status == "" {
		ur.Status = model.UserRewardLocked
	}

	ts := now()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO user_rewards (`+userRewardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, reward_id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			earned_at = excluded.earned_at,
			fulfilled_at = excluded.fulfilled_at,
			updated_at = excluded.updated_at`),
		newID(), ur.UserID, ur.RewardID, ur.Status, ur.Progress,
		utcPtr(ur.EarnedAt), utcPtr(ur.FulfilledAt), ts, ts,
	)
	if err != nil {
		return model.UserReward{}, fmt.Errorf("upserting user reward: %w", err)
	}

	return queryOne(ctx, r.db, scanUserReward, "user reward "+ur.RewardID,
		"SELECT "+userRewardColumns+" FROM user_rewards WHERE user_id = ? AND reward_id = ?",
		ur.UserID, ur.RewardID)
}
