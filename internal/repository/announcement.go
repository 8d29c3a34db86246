package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/model"
)

// AnnouncementRepository stores broadcast announcements.
type AnnouncementRepository struct {
	db *db.DB
}

// NewAnnouncementRepository creates an announcement repository.
func NewAnnouncementRepository(d *db.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: d}
}

const announcementColumns = `id, title, message, priority, created_by, expires_at, created_at`

func scanAnnouncement(row scanner) (model.Announcement, error) {
	var a model.Announcement
	var expiresAt sql.NullTime

	if err := row.Scan(&a.ID, &a.Title, &a.Message, &a.Priority, &a.CreatedBy, &expiresAt, &a.CreatedAt); err != nil {
		return model.Announcement{}, err
	}
	a.ExpiresAt = nullTime(expiresAt)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

// GetAll returns every announcement, newest first.
func (r *AnnouncementRepository) GetAll(ctx context.Context) ([]model.Announcement, error) {
	announcements, err := queryAll(ctx, r.db, scanAnnouncement,
		"SELECT "+announcementColumns+" FROM announcements ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("listing announcements: %w", err)
	}
	return announcements, nil
}

// GetActive returns announcements that have not yet expired.
func (r *AnnouncementRepository) GetActive(ctx context.Context) ([]model.Announcement, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	ts := now()
	active := make([]model.Announcement, 0, len(all))
	for _, a := range all {
		if a.ActiveAt(ts) {
			active = append(active, a)
		}
	}
	return active, nil
}

// Create stores an announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, a model.Announcement) (model.Announcement, error) {
	if a.Title == "" {
		return model.Announcement{}, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if a.CreatedBy == "" {
		return model.Announcement{}, fmt.Errorf("%w: created_by is required", ErrInvalid)
	}
	if a.Priority == "" {
		a.Priority = model.PriorityMedium
	}

	a.ID = newID()
	a.CreatedAt = now()
	if a.ExpiresAt != nil {
		t := a.ExpiresAt.UTC()
		a.ExpiresAt = &t
	}

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO announcements (`+announcementColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		a.ID, a.Title, a.Message, a.Priority, a.CreatedBy, utcPtr(a.ExpiresAt), a.CreatedAt,
	)
	if err != nil {
		return model.Announcement{}, fmt.Errorf("inserting announcement: %w", err)
	}
	return a, nil
}
