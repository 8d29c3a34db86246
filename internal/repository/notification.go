package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/model"
)

// NotificationRepository stores per-user notifications.
type NotificationRepository struct {
	db *db.DB
}

// NewNotificationRepository creates a notification repository.
func NewNotificationRepository(d *db.DB) *NotificationRepository {
	return &NotificationRepository{db: d}
}

const notificationColumns = `id, type, title, message, priority, recipient_id, sender_id, entity_type,
	entity_id, read, created_at`

func scanNotification(row scanner) (model.Notification, error) {
	var n model.Notification
	var senderID, entityType, entityID sql.NullString

	err := row.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &n.Priority, &n.RecipientID,
		&senderID, &entityType, &entityID, &n.Read, &n.CreatedAt)
	if err != nil {
		return model.Notification{}, err
	}

	n.SenderID = nullString(senderID)
	n.EntityID = nullString(entityID)
	if entityType.Valid {
		et := model.EntityType(entityType.String)
		n.EntityType = &et
	}
	n.CreatedAt = n.CreatedAt.UTC()
	return n, nil
}

// GetForUser returns the user's notifications, newest first.
func (r *NotificationRepository) GetForUser(ctx context.Context, userID string) ([]model.Notification, error) {
	notifications, err := queryAll(ctx, r.db, scanNotification,
		"SELECT "+notificationColumns+" FROM notifications WHERE recipient_id = ? ORDER BY created_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return notifications, nil
}

// GetByID returns a notification by ID.
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (model.Notification, error) {
	return queryOne(ctx, r.db, scanNotification, "notification "+id,
		"SELECT "+notificationColumns+" FROM notifications WHERE id = ?", id)
}

// Create stores an unread notification.
func (r *NotificationRepository) Create(ctx context.Context, n model.Notification) (model.Notification, error) {
	if n.RecipientID == "" {
		return model.Notification{}, fmt.Errorf("%w: recipient_id is required", ErrInvalid)
	}
	if n.Title == "" {
		return model.Notification{}, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if n.Type == "" {
		n.Type = model.NotificationSystem
	}
	if n.Priority == "" {
		n.Priority = model.PriorityMedium
	}

	n.ID = newID()
	n.Read = false
	n.CreatedAt = now()

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		n.ID, n.Type, n.Title, n.Message, n.Priority, n.RecipientID, n.SenderID, n.EntityType,
		n.EntityID, n.Read, n.CreatedAt,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("inserting notification: %w", err)
	}
	return n, nil
}

// MarkAsRead marks one notification read and returns it.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id string) (model.Notification, error) {
	result, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE notifications SET read = ? WHERE id = ?"), true, id)
	if err != nil {
		return model.Notification{}, fmt.Errorf("marking notification read: %w", err)
	}
	if err := requireRow(result, "notifications", id); err != nil {
		return model.Notification{}, err
	}
	return r.GetByID(ctx, id)
}

// MarkAllAsRead marks every notification for the user read.
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE notifications SET read = ? WHERE recipient_id = ? AND read = ?"),
		true, userID, false)
	if err != nil {
		return fmt.Errorf("marking notifications read: %w", err)
	}
	return nil
}
