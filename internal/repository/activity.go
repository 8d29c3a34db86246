package repository

import (
	"context"
	"fmt"

	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/model"
)

// ActivityRepository stores the human-readable activity feed.
type ActivityRepository struct {
	db *db.DB
}

// NewActivityRepository creates an activity repository.
func NewActivityRepository(d *db.DB) *ActivityRepository {
	return &ActivityRepository{db: d}
}

const activityColumns = `id, user_id, action, entity_type, entity_id, entity_name, created_at`

func scanActivity(row scanner) (model.Activity, error) {
	var a model.Activity
	if err := row.Scan(&a.ID, &a.UserID, &a.Action, &a.EntityType, &a.EntityID, &a.EntityName, &a.CreatedAt); err != nil {
		return model.Activity{}, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

// GetByUser returns the most recent activities, newest first. Admins see
// every user's activity.
func (r *ActivityRepository) GetByUser(ctx context.Context, userID string, isAdmin bool) ([]model.Activity, error) {
	var (
		activities []model.Activity
		err        error
	)
	if isAdmin {
		activities, err = queryAll(ctx, r.db, scanActivity,
			"SELECT "+activityColumns+" FROM activities ORDER BY created_at DESC LIMIT ?",
			model.ActivityFeedLimit)
	} else {
		activities, err = queryAll(ctx, r.db, scanActivity,
			"SELECT "+activityColumns+" FROM activities WHERE user_id = ? ORDER BY created_at DESC LIMIT ?",
			userID, model.ActivityFeedLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	return activities, nil
}

// Create records an activity and returns it as stored.
func (r *ActivityRepository) Create(ctx context.Context, a model.Activity) (model.Activity, error) {
	if a.UserID == "" {
		return model.Activity{}, fmt.Errorf("%w: user_id is required", ErrInvalid)
	}
	if a.Action == "" {
		return model.Activity{}, fmt.Errorf("%w: action is required", ErrInvalid)
	}

	a.ID = newID()
	a.CreatedAt = now()

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO activities (`+activityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		a.ID, a.UserID, a.Action, a.EntityType, a.EntityID, a.EntityName, a.CreatedAt,
	)
	if err != nil {
		return model.Activity{}, fmt.Errorf("inserting activity: %w", err)
	}
	return a, nil
}
