package model

import "time"

// NotificationType is the closed set of notification kinds.
type NotificationType string

const (
	NotificationLeadAssigned   NotificationType = "lead_assigned"
	NotificationDealClosed     NotificationType = "deal_closed"
	NotificationPropertyUpdate NotificationType = "property_update"
	NotificationAnnouncement   NotificationType = "announcement"
	NotificationRewardEarned   NotificationType = "reward_earned"
	NotificationReferral       NotificationType = "referral"
	NotificationSystem         NotificationType = "system"
)

// Priority ranks notifications and announcements.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Notification is a message addressed to a single recipient.
type Notification struct {
	ID          string           `json:"id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Priority    Priority         `json:"priority"`
	RecipientID string           `json:"recipient_id"`
	SenderID    *string          `json:"sender_id,omitempty"`
	EntityType  *EntityType      `json:"entity_type,omitempty"`
	EntityID    *string          `json:"entity_id,omitempty"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Announcement is a broadcast message with an optional expiry.
type Announcement struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Priority  Priority   `json:"priority"`
	CreatedBy string     `json:"created_by"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ActiveAt reports whether the announcement has no expiry or expires after now.
func (a Announcement) ActiveAt(now time.Time) bool {
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}
