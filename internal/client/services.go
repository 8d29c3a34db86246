package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/evcraddock/estate-crm/internal/model"
)

// scopeQuery builds the query for per-user listings. Admins asking for a
// non-admin view are narrowed to userID; the server forces non-admins to
// their own scope regardless.
func scopeQuery(userID string, isAdmin bool) string {
	if isAdmin || userID == "" {
		return ""
	}
	q := url.Values{}
	q.Set("scope", "user")
	q.Set("user_id", userID)
	return "?" + q.Encode()
}

func userQuery(param, userID string) string {
	if userID == "" {
		return ""
	}
	return "?" + url.Values{param: []string{userID}}.Encode()
}

func item(collection, id string) string {
	return collection + "/" + url.PathEscape(id)
}

// PropertyService calls /api/properties.
type PropertyService struct{ c *Client }

// Properties returns the property service.
func (c *Client) Properties() *PropertyService { return &PropertyService{c: c} }

// GetByUser lists the properties visible to userID.
func (s *PropertyService) GetByUser(ctx context.Context, userID string, isAdmin bool) ([]model.Property, error) {
	var props []model.Property
	if err := s.c.do(ctx, http.MethodGet, "/api/properties"+scopeQuery(userID, isAdmin), nil, &props); err != nil {
		return nil, err
	}
	return props, nil
}

// Get returns one property.
func (s *PropertyService) Get(ctx context.Context, id string) (model.Property, error) {
	var p model.Property
	err := s.c.do(ctx, http.MethodGet, item("/api/properties", id), nil, &p)
	return p, err
}

// Create adds a property.
func (s *PropertyService) Create(ctx context.Context, p model.Property) (model.Property, error) {
	var created model.Property
	err := s.c.do(ctx, http.MethodPost, "/api/properties", p, &created)
	return created, err
}

// Update applies a partial update.
func (s *PropertyService) Update(ctx context.Context, id string, patch model.PropertyPatch) (model.Property, error) {
	var p model.Property
	err := s.c.do(ctx, http.MethodPatch, item("/api/properties", id), patch, &p)
	return p, err
}

// Delete removes a property.
func (s *PropertyService) Delete(ctx context.Context, id string) error {
	return s.c.do(ctx, http.MethodDelete, item("/api/properties", id), nil, nil)
}

// LeadService calls /api/leads.
type LeadService struct{ c *Client }

// Leads returns the lead service.
func (c *Client) Leads() *LeadService { return &LeadService{c: c} }

// GetByUser lists the leads visible to userID.
func (s *LeadService) GetByUser(ctx context.Context, userID string, isAdmin bool) ([]model.Lead, error) {
	var leads []model.Lead
	if err := s.c.do(ctx, http.MethodGet, "/api/leads"+scopeQuery(userID, isAdmin), nil, &leads); err != nil {
		return nil, err
	}
	return leads, nil
}

// Get returns one lead.
func (s *LeadService) Get(ctx context.Context, id string) (model.Lead, error) {
	var l model.Lead
	err := s.c.do(ctx, http.MethodGet, item("/api/leads", id), nil, &l)
	return l, err
}

// Create adds a lead.
func (s *LeadService) Create(ctx context.Context, l model.Lead) (model.Lead, error) {
	var created model.Lead
	err := s.c.do(ctx, http.MethodPost, "/api/leads", l, &created)
	return created, err
}

// Update applies a partial update.
func (s *LeadService) Update(ctx context.Context, id string, patch model.LeadPatch) (model.Lead, error) {
	var l model.Lead
	err := s.c.do(ctx, http.MethodPatch, item("/api/leads", id), patch, &l)
	return l, err
}

// Delete removes a lead.
func (s *LeadService) Delete(ctx context.Context, id string) error {
	return s.c.do(ctx, http.MethodDelete, item("/api/leads", id), nil, nil)
}

// DealService calls /api/deals.
type DealService struct{ c *Client }

// Deals returns the deal service.
func (c *Client) Deals() *DealService { return &DealService{c: c} }

// GetByUser lists the deals visible to userID.
func (s *DealService) GetByUser(ctx context.Context, userID string, isAdmin bool) ([]model.Deal, error) {
	var deals []model.Deal
	if err := s.c.do(ctx, http.MethodGet, "/api/deals"+scopeQuery(userID, isAdmin), nil, &deals); err != nil {
		return nil, err
	}
	return deals, nil
}

// Get returns one deal.
func (s *DealService) Get(ctx context.Context, id string) (model.Deal, error) {
	var d model.Deal
	err := s.c.do(ctx, http.MethodGet, item("/api/deals", id), nil, &d)
	return d, err
}

// Create adds a deal.
func (s *DealService) Create(ctx context.Context, d model.Deal) (model.Deal, error) {
	var created model.Deal
	err := s.c.do(ctx, http.MethodPost, "/api/deals", d, &created)
	return created, err
}

// Update applies a partial update.
func (s *DealService) Update(ctx context.Context, id string, patch model.DealPatch) (model.Deal, error) {
	var d model.Deal
	err := s.c.do(ctx, http.MethodPatch, item("/api/deals", id), patch, &d)
	return d, err
}

// ActivityService calls /api/activities.
type ActivityService struct{ c *Client }

// Activities returns the activity service.
func (c *Client) Activities() *ActivityService { return &ActivityService{c: c} }

// GetByUser lists feed entries visible to userID.
func (s *ActivityService) GetByUser(ctx context.Context, userID string, isAdmin bool) ([]model.Activity, error) {
	var activities []model.Activity
	if err := s.c.do(ctx, http.MethodGet, "/api/activities"+scopeQuery(userID, isAdmin), nil, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// Create appends a feed entry.
func (s *ActivityService) Create(ctx context.Context, a model.Activity) (model.Activity, error) {
	var created model.Activity
	err := s.c.do(ctx, http.MethodPost, "/api/activities", a, &created)
	return created, err
}

// AuditService calls /api/audit-logs.
type AuditService struct{ c *Client }

// Audit returns the audit service.
func (c *Client) Audit() *AuditService { return &AuditService{c: c} }

// List returns the newest limit entries. Admin only.
func (s *AuditService) List(ctx context.Context, limit int) ([]model.AuditLog, error) {
	path := "/api/audit-logs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var logs []model.AuditLog
	if err := s.c.do(ctx, http.MethodGet, path, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// Create appends an audit entry.
func (s *AuditService) Create(ctx context.Context, a model.AuditLog) (model.AuditLog, error) {
	var created model.AuditLog
	err := s.c.do(ctx, http.MethodPost, "/api/audit-logs", a, &created)
	return created, err
}

// UserService calls /api/users.
type UserService struct{ c *Client }

// Users returns the user service.
func (c *Client) Users() *UserService { return &UserService{c: c} }

// GetAll lists every user.
func (s *UserService) GetAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.c.do(ctx, http.MethodGet, "/api/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetByID returns one user.
func (s *UserService) GetByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := s.c.do(ctx, http.MethodGet, item("/api/users", id), nil, &u)
	return u, err
}

// GetByEmail looks a user up by email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := s.c.do(ctx, http.MethodGet, "/api/users/by-email"+userQuery("email", email), nil, &u)
	return u, err
}

// Create adds a user. Admin only.
func (s *UserService) Create(ctx context.Context, nu model.NewUser) (model.User, error) {
	var u model.User
	err := s.c.do(ctx, http.MethodPost, "/api/users", nu, &u)
	return u, err
}

// Update applies a partial profile update.
func (s *UserService) Update(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	var u model.User
	err := s.c.do(ctx, http.MethodPatch, item("/api/users", id), patch, &u)
	return u, err
}

// Delete removes a user. Admin only.
func (s *UserService) Delete(ctx context.Context, id string) error {
	return s.c.do(ctx, http.MethodDelete, item("/api/users", id), nil, nil)
}

// ToggleStatus flips a user between active and inactive. Admin only.
func (s *UserService) ToggleStatus(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := s.c.do(ctx, http.MethodPost, item("/api/users", id)+"/toggle-status", nil, &u)
	return u, err
}

// ChangePassword sets a new password.
func (s *UserService) ChangePassword(ctx context.Context, id, password string) error {
	body := map[string]string{"password": password}
	return s.c.do(ctx, http.MethodPut, item("/api/users", id)+"/password", body, nil)
}

// NotificationService calls /api/notifications.
type NotificationService struct{ c *Client }

// Notifications returns the notification service.
func (c *Client) Notifications() *NotificationService { return &NotificationService{c: c} }

// GetForUser lists a recipient's notifications.
func (s *NotificationService) GetForUser(ctx context.Context, userID string) ([]model.Notification, error) {
	var notifications []model.Notification
	if err := s.c.do(ctx, http.MethodGet, "/api/notifications"+userQuery("user_id", userID), nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// Create sends a notification.
func (s *NotificationService) Create(ctx context.Context, n model.Notification) (model.Notification, error) {
	var created model.Notification
	err := s.c.do(ctx, http.MethodPost, "/api/notifications", n, &created)
	return created, err
}

// MarkAsRead marks one notification read.
func (s *NotificationService) MarkAsRead(ctx context.Context, id string) (model.Notification, error) {
	var n model.Notification
	err := s.c.do(ctx, http.MethodPost, item("/api/notifications", id)+"/read", nil, &n)
	return n, err
}

// MarkAllAsRead marks every notification for userID read.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	return s.c.do(ctx, http.MethodPost, "/api/notifications/read-all"+userQuery("user_id", userID), nil, nil)
}

// AnnouncementService calls /api/announcements.
type AnnouncementService struct{ c *Client }

// Announcements returns the announcement service.
func (c *Client) Announcements() *AnnouncementService { return &AnnouncementService{c: c} }

// GetActive lists unexpired announcements.
func (s *AnnouncementService) GetActive(ctx context.Context) ([]model.Announcement, error) {
	var announcements []model.Announcement
	if err := s.c.do(ctx, http.MethodGet, "/api/announcements", nil, &announcements); err != nil {
		return nil, err
	}
	return announcements, nil
}

// GetAll lists every announcement including expired ones. Admin only.
func (s *AnnouncementService) GetAll(ctx context.Context) ([]model.Announcement, error) {
	var announcements []model.Announcement
	if err := s.c.do(ctx, http.MethodGet, "/api/announcements?all=true", nil, &announcements); err != nil {
		return nil, err
	}
	return announcements, nil
}

// Create posts an announcement. Admin only.
func (s *AnnouncementService) Create(ctx context.Context, a model.Announcement) (model.Announcement, error) {
	var created model.Announcement
	err := s.c.do(ctx, http.MethodPost, "/api/announcements", a, &created)
	return created, err
}

// RewardService calls /api/rewards and the per-user reward endpoints.
type RewardService struct{ c *Client }

// Rewards returns the reward service.
func (c *Client) Rewards() *RewardService { return &RewardService{c: c} }

// GetAll lists the reward catalog.
func (s *RewardService) GetAll(ctx context.Context) ([]model.Reward, error) {
	var rewards []model.Reward
	if err := s.c.do(ctx, http.MethodGet, "/api/rewards", nil, &rewards); err != nil {
		return nil, err
	}
	return rewards, nil
}

// Create adds a catalog reward. Admin only.
func (s *RewardService) Create(ctx context.Context, rw model.Reward) (model.Reward, error) {
	var created model.Reward
	err := s.c.do(ctx, http.MethodPost, "/api/rewards", rw, &created)
	return created, err
}

// GetUserRewards lists a user's reward standings.
func (s *RewardService) GetUserRewards(ctx context.Context, userID string) ([]model.UserReward, error) {
	var rewards []model.UserReward
	if err := s.c.do(ctx, http.MethodGet, item("/api/users", userID)+"/rewards", nil, &rewards); err != nil {
		return nil, err
	}
	return rewards, nil
}

// UpsertUserReward stores a user's standing for one reward.
func (s *RewardService) UpsertUserReward(ctx context.Context, ur model.UserReward) (model.UserReward, error) {
	var saved model.UserReward
	err := s.c.do(ctx, http.MethodPut, "/api/user-rewards", ur, &saved)
	return saved, err
}

// ReferralService calls /api/referrals.
type ReferralService struct{ c *Client }

// Referrals returns the referral service.
func (c *Client) Referrals() *ReferralService { return &ReferralService{c: c} }

// GetForReferrer lists a referrer's earnings.
func (s *ReferralService) GetForReferrer(ctx context.Context, referrerID string) ([]model.ReferralEarning, error) {
	var earnings []model.ReferralEarning
	if err := s.c.do(ctx, http.MethodGet, "/api/referrals"+userQuery("referrer_id", referrerID), nil, &earnings); err != nil {
		return nil, err
	}
	return earnings, nil
}

// Create records an earning. Admin only.
func (s *ReferralService) Create(ctx context.Context, e model.ReferralEarning) (model.ReferralEarning, error) {
	var created model.ReferralEarning
	err := s.c.do(ctx, http.MethodPost, "/api/referrals", e, &created)
	return created, err
}

// StatsService calls /api/stats.
type StatsService struct{ c *Client }

// Stats returns the dashboard aggregate service.
func (c *Client) Stats() *StatsService { return &StatsService{c: c} }

// Stats returns the dashboard aggregate. The server scopes it to the caller,
// so userID and isAdmin only document intent.
func (s *StatsService) Stats(ctx context.Context, userID string, isAdmin bool) (model.Stats, error) {
	var stats model.Stats
	err := s.c.do(ctx, http.MethodGet, "/api/stats", nil, &stats)
	return stats, err
}
