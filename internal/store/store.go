// Package store is the client-side cache and mutation layer of the CRM.
//
// A Store holds in-memory copies of every entity collection visible to the
// running session. Mutations go to the remote store first; on success the
// cache is updated with the record the remote returned, and an audit entry
// (plus, for some actions, an activity feed entry) is written alongside.
// Read accessors apply role-based visibility over the cached collections
// without touching the remote.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evcraddock/estate-crm/internal/model"
)

var (
	// ErrNoIdentity is returned by user-scoped actions when no user is loaded.
	ErrNoIdentity = errors.New("no current user")
	// ErrValidation wraps local validation failures raised before any remote call.
	ErrValidation = errors.New("validation failed")
	// ErrStatusLocked is returned when toggling a suspended user.
	ErrStatusLocked = errors.New("user status is locked")
	// ErrRewardRegression is returned when a reward status would move backwards.
	ErrRewardRegression = errors.New("reward status cannot move backwards")
)

// LoadErrorMessage is the user-facing error set when a bulk load fails.
const LoadErrorMessage = "Failed to load data. Please try again."

// PropertyRemote is the remote side of property mutations.
type PropertyRemote interface {
	GetByUser(ctx context.Context, userID string, isAdmin bool) ([]model.Property, error)
	Create(ctx context.Context, p model.Property) (model.Property, error)
	Update(ctx context.Context, id string, patch model.PropertyPatch) (model.Property, error)
	Delete(ctx context.Context, id string) error
}

// LeadRemote is the remote side of lead mutations.
type LeadRemote interface {
	GetByUser(ctx context.Context, userID string, isAdmin bool) ([]model.Lead, error)
	Create(ctx context.Context, l model.Lead) (model.Lead, error)
	Update(ctx context.Context, id string, patch model.LeadPatch) (model.Lead, error)
	Delete(ctx context.Context, id string) error
}

// DealRemote is the remote side of deal mutations. Deals have no delete.
type DealRemote interface {
	GetByUser(ctx context.Context, userID string, isAdmin bool) ([]model.Deal, error)
	Create(ctx context.Context, d model.Deal) (model.Deal, error)
	Update(ctx context.Context, id string, patch model.DealPatch) (model.Deal, error)
}

// ActivityRemote stores activity feed entries.
type ActivityRemote interface {
	GetByUser(ctx context.Context, userID string, isAdmin bool) ([]model.Activity, error)
	Create(ctx context.Context, a model.Activity) (model.Activity, error)
}

// AuditRemote stores audit entries.
type AuditRemote interface {
	List(ctx context.Context, limit int) ([]model.AuditLog, error)
	Create(ctx context.Context, a model.AuditLog) (model.AuditLog, error)
}

// UserRemote manages user profiles.
type UserRemote interface {
	GetAll(ctx context.Context) ([]model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, nu model.NewUser) (model.User, error)
	Update(ctx context.Context, id string, patch model.UserPatch) (model.User, error)
	Delete(ctx context.Context, id string) error
	// ToggleStatus atomically flips active and inactive on the remote.
	ToggleStatus(ctx context.Context, id string) (model.User, error)
	ChangePassword(ctx context.Context, id, password string) error
}

// NotificationRemote manages per-user notifications.
type NotificationRemote interface {
	GetForUser(ctx context.Context, userID string) ([]model.Notification, error)
	Create(ctx context.Context, n model.Notification) (model.Notification, error)
	MarkAsRead(ctx context.Context, id string) (model.Notification, error)
	MarkAllAsRead(ctx context.Context, userID string) error
}

// AnnouncementRemote manages announcements.
type AnnouncementRemote interface {
	GetActive(ctx context.Context) ([]model.Announcement, error)
	Create(ctx context.Context, a model.Announcement) (model.Announcement, error)
}

// RewardRemote manages the reward catalog and per-user standings.
type RewardRemote interface {
	GetAll(ctx context.Context) ([]model.Reward, error)
	GetUserRewards(ctx context.Context, userID string) ([]model.UserReward, error)
	UpsertUserReward(ctx context.Context, ur model.UserReward) (model.UserReward, error)
}

// ReferralRemote manages referral earnings.
type ReferralRemote interface {
	GetForReferrer(ctx context.Context, referrerID string) ([]model.ReferralEarning, error)
	Create(ctx context.Context, e model.ReferralEarning) (model.ReferralEarning, error)
}

// StatsRemote computes dashboard aggregates on the remote.
type StatsRemote interface {
	Stats(ctx context.Context, userID string, isAdmin bool) (model.Stats, error)
}

// Remote bundles every remote collaborator the store talks to.
type Remote struct {
	Properties    PropertyRemote
	Leads         LeadRemote
	Deals         DealRemote
	Activities    ActivityRemote
	Audit         AuditRemote
	Users         UserRemote
	Notifications NotificationRemote
	Announcements AnnouncementRemote
	Rewards       RewardRemote
	Referrals     ReferralRemote
	Stats         StatsRemote
}

// Observer receives store outcomes, typically for metrics.
type Observer interface {
	ObserveMutation(entity model.EntityType, action string, err error)
	ObserveSideEffectFailure(kind string, entity model.EntityType)
	ObserveLoad(d time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveMutation(model.EntityType, string, error) {}
func (nopObserver) ObserveSideEffectFailure(string, model.EntityType) {}
func (nopObserver) ObserveLoad(time.Duration, error) {}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for side-effect failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithObserver sets the outcome observer.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithClock overrides the clock used for read-time filters.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the in-memory cache for one session. It is safe for concurrent use.
type Store struct {
	remote   Remote
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	mu            sync.RWMutex
	currentUserID string
	isAdmin       bool
	isLoading     bool
	errMsg        string

	properties    []model.Property
	leads         []model.Lead
	deals         []model.Deal
	activities    []model.Activity
	auditLogs     []model.AuditLog
	users         []model.User
	notifications []model.Notification
	announcements []model.Announcement
	rewards       []model.Reward
	userRewards   []model.UserReward
	referrals     []model.ReferralEarning
}

// New creates an empty store backed by remote.
func New(remote Remote, opts ...Option) *Store {
	s := &Store{
		remote:   remote,
		logger:   slog.Default(),
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentUserID returns the id of the loaded user, or "" before the first load.
func (s *Store) CurrentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentUserID
}

// IsAdmin reports whether the loaded user is an admin.
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isAdmin
}

// IsLoading reports whether a bulk load is in flight.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isLoading
}

// Error returns the user-facing message from the last failed bulk load.
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// Reset drops every cached collection and the current identity.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentUserID = ""
	s.isAdmin = false
	s.isLoading = false
	s.errMsg = ""
	s.properties = nil
	s.leads = nil
	s.deals = nil
	s.activities = nil
	s.auditLogs = nil
	s.users = nil
	s.notifications = nil
	s.announcements = nil
	s.rewards = nil
	s.userRewards = nil
	s.referrals = nil
}

// LoadInitialData fetches every session-scoped collection concurrently and
// replaces the cache only if all fetches succeed. The identity switches to
// userID together with the collections; a failed load leaves both as they
// were.
func (s *Store) LoadInitialData(ctx context.Context, userID string, isAdmin bool) error {
	start := time.Now()

	s.mu.Lock()
	s.isLoading = true
	s.errMsg = ""
	s.mu.Unlock()

	var (
		properties    []model.Property
		leads         []model.Lead
		deals         []model.Deal
		activities    []model.Activity
		users         []model.User
		announcements []model.Announcement
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		properties, err = s.remote.Properties.GetByUser(gctx, userID, isAdmin)
		return wrap("properties", err)
	})
	g.Go(func() (err error) {
		leads, err = s.remote.Leads.GetByUser(gctx, userID, isAdmin)
		return wrap("leads", err)
	})
	g.Go(func() (err error) {
		deals, err = s.remote.Deals.GetByUser(gctx, userID, isAdmin)
		return wrap("deals", err)
	})
	g.Go(func() (err error) {
		activities, err = s.remote.Activities.GetByUser(gctx, userID, isAdmin)
		return wrap("activities", err)
	})
	g.Go(func() (err error) {
		users, err = s.remote.Users.GetAll(gctx)
		return wrap("users", err)
	})
	g.Go(func() (err error) {
		announcements, err = s.remote.Announcements.GetActive(gctx)
		return wrap("announcements", err)
	})

	err := g.Wait()
	s.observer.ObserveLoad(time.Since(start), err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = false

	if err != nil {
		s.errMsg = LoadErrorMessage
		s.logger.Error("loading initial data", "user_id", userID, "error", err)
		return fmt.Errorf("loading initial data: %w", err)
	}

	if userID != s.currentUserID {
		// Per-user collections fetched on demand belong to the old identity.
		s.auditLogs = nil
		s.notifications = nil
		s.rewards = nil
		s.userRewards = nil
		s.referrals = nil
	}
	s.currentUserID = userID
	s.isAdmin = isAdmin
	s.properties = properties
	s.leads = leads
	s.deals = deals
	s.activities = capFront(activities, model.ActivityFeedLimit)
	s.users = users
	s.announcements = announcements
	return nil
}

// RefreshData reloads the cache for the given identity.
func (s *Store) RefreshData(ctx context.Context, userID string, isAdmin bool) error {
	return s.LoadInitialData(ctx, userID, isAdmin)
}

// actor returns the current user id or ErrNoIdentity.
func (s *Store) actor() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentUserID == "" {
		return "", ErrNoIdentity
	}
	return s.currentUserID, nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("fetching %s: %w", what, err)
	}
	return nil
}

// prepend puts item at the head of items, dropping the oldest entries past limit.
// A limit of 0 means unbounded.
func prepend[T any](items []T, item T, limit int) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, item)
	out = append(out, items...)
	return capFront(out, limit)
}

func capFront[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit:limit]
	}
	return items
}

// upsert replaces the element whose id matches, or prepends item if absent.
// Records a concurrent reload already brought in are therefore never
// duplicated.
func upsert[T any](items []T, item T, id func(T) string) []T {
	return upsertCapped(items, item, id, 0)
}

// upsertCapped is upsert for the capped feeds.
func upsertCapped[T any](items []T, item T, id func(T) string, limit int) []T {
	key := id(item)
	if i := slices.IndexFunc(items, func(v T) bool { return id(v) == key }); i >= 0 {
		out := slices.Clone(items)
		out[i] = item
		return out
	}
	return prepend(items, item, limit)
}

func remove[T any](items []T, key string, id func(T) string) []T {
	return slices.DeleteFunc(slices.Clone(items), func(v T) bool { return id(v) == key })
}

func find[T any](items []T, key string, id func(T) string) (T, bool) {
	if i := slices.IndexFunc(items, func(v T) bool { return id(v) == key }); i >= 0 {
		return items[i], true
	}
	var zero T
	return zero, false
}

func propertyKey(p model.Property) string { return p.ID }
func leadKey(l model.Lead) string { return l.ID }
func dealKey(d model.Deal) string { return d.ID }
func userKey(u model.User) string { return u.ID }
func notificationKey(n model.Notification) string { return n.ID }
func announcementKey(a model.Announcement) string { return a.ID }
func referralKey(e model.ReferralEarning) string { return e.ID }
func activityKey(a model.Activity) string { return a.ID }
func auditKey(a model.AuditLog) string { return a.ID }
