package store

import (
	"context"
	"fmt"

	"github.com/evcraddock/estate-crm/internal/model"
)

// LoadNotifications refreshes the current user's notifications. A failure
// leaves an empty list and is only logged.
func (s *Store) LoadNotifications(ctx context.Context) {
	userID := s.CurrentUserID()
	if userID == "" {
		return
	}

	notifications, err := s.remote.Notifications.GetForUser(ctx, userID)
	if err != nil {
		s.logger.Warn("loading notifications", "user_id", userID, "error", err)
		notifications = []model.Notification{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = notifications
}

// NotificationsForUser returns the cached notifications addressed to userID.
func (s *Store) NotificationsForUser(userID string) []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter(s.notifications, func(n model.Notification) bool { return n.RecipientID == userID })
}

// UnreadCountForUser counts unread notifications addressed to userID.
func (s *Store) UnreadCountForUser(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, v := range s.notifications {
		if v.RecipientID == userID && !v.Read {
			n++
		}
	}
	return n
}

// SendNotification creates a notification from the current user.
func (s *Store) SendNotification(ctx context.Context, n model.Notification) (model.Notification, error) {
	actor, err := s.actor()
	if err != nil {
		return model.Notification{}, err
	}
	if n.SenderID == nil {
		n.SenderID = &actor
	}

	created, err := s.remote.Notifications.Create(ctx, n)
	if err != nil {
		return model.Notification{}, fmt.Errorf("sending notification: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = upsert(s.notifications, created, notificationKey)
	return created, nil
}

// MarkNotificationRead marks a single notification read.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) (model.Notification, error) {
	updated, err := s.remote.Notifications.MarkAsRead(ctx, id)
	if err != nil {
		return model.Notification{}, fmt.Errorf("marking notification %s read: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = upsert(s.notifications, updated, notificationKey)
	return updated, nil
}

// MarkAllNotificationsRead marks every notification of the current user read.
func (s *Store) MarkAllNotificationsRead(ctx context.Context) error {
	userID, err := s.actor()
	if err != nil {
		return err
	}
	if err := s.remote.Notifications.MarkAllAsRead(ctx, userID); err != nil {
		return fmt.Errorf("marking notifications read: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Notification, len(s.notifications))
	for i, n := range s.notifications {
		if n.RecipientID == userID {
			n.Read = true
		}
		out[i] = n
	}
	s.notifications = out
	return nil
}

// ActiveAnnouncements returns the cached announcements that have not expired
// as of now.
func (s *Store) ActiveAnnouncements() []model.Announcement {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter(s.announcements, func(a model.Announcement) bool { return a.ActiveAt(now) })
}

// CreateAnnouncement publishes an announcement from the current user.
func (s *Store) CreateAnnouncement(ctx context.Context, a model.Announcement) (model.Announcement, error) {
	actor, err := s.actor()
	if err != nil {
		return model.Announcement{}, err
	}
	if a.CreatedBy == "" {
		a.CreatedBy = actor
	}

	created, err := s.remote.Announcements.Create(ctx, a)
	if err != nil {
		return model.Announcement{}, fmt.Errorf("creating announcement: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.announcements = upsert(s.announcements, created, announcementKey)
	return created, nil
}
