package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/model"
	"github.com/evcraddock/estate-crm/internal/repository"
)

var (
	_ PropertyRemote     = (*repository.PropertyRepository)(nil)
	_ LeadRemote         = (*repository.LeadRepository)(nil)
	_ DealRemote         = (*repository.DealRepository)(nil)
	_ ActivityRemote     = (*repository.ActivityRepository)(nil)
	_ AuditRemote        = (*repository.AuditRepository)(nil)
	_ UserRemote         = (*repository.UserRepository)(nil)
	_ NotificationRemote = (*repository.NotificationRepository)(nil)
	_ AnnouncementRemote = (*repository.AnnouncementRepository)(nil)
	_ RewardRemote       = (*repository.RewardRepository)(nil)
	_ ReferralRemote     = (*repository.ReferralRepository)(nil)
	_ StatsRemote        = (*repository.StatsRepository)(nil)
)

var errBoom = errors.New("boom")

// fixture is a store backed by real SQLite repositories.
type fixture struct {
	store  *Store
	remote Remote
	db     *db.DB
	obs    *recorder

	properties    *repository.PropertyRepository
	leads         *repository.LeadRepository
	deals         *repository.DealRepository
	users         *repository.UserRepository
	notifications *repository.NotificationRepository
	rewards       *repository.RewardRepository

	admin model.User
	agent model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	d, err := db.Open(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("closing db: %v", err)
		}
	})

	f := &fixture{
		db:            d,
		obs:           &recorder{},
		properties:    repository.NewPropertyRepository(d),
		leads:         repository.NewLeadRepository(d),
		deals:         repository.NewDealRepository(d),
		users:         repository.NewUserRepository(d),
		notifications: repository.NewNotificationRepository(d),
		rewards:       repository.NewRewardRepository(d),
	}
	f.users.SetHashCost(bcrypt.MinCost)

	f.remote = Remote{
		Properties:    f.properties,
		Leads:         f.leads,
		Deals:         f.deals,
		Activities:    repository.NewActivityRepository(d),
		Audit:         repository.NewAuditRepository(d),
		Users:         f.users,
		Notifications: f.notifications,
		Announcements: repository.NewAnnouncementRepository(d),
		Rewards:       f.rewards,
		Referrals:     repository.NewReferralRepository(d),
		Stats:         repository.NewStatsRepository(d),
	}

	f.admin = f.mustUser(t, "admin@example.com", "Ada Admin", model.RoleAdmin)
	f.agent = f.mustUser(t, "agent@example.com", "Sam Agent", model.RoleUser)

	f.store = f.newStore()
	return f
}

func (f *fixture) newStore(opts ...Option) *Store {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithObserver(f.obs),
	}
	return New(f.remote, append(base, opts...)...)
}

func (f *fixture) mustUser(t *testing.T, email, name string, role model.Role) model.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), model.NewUser{
		Email: email, FullName: name, Role: role, Password: "password123",
	})
	if err != nil {
		t.Fatalf("creating user %s: %v", email, err)
	}
	return u
}

// loadAs loads the fixture's store as the given user.
func (f *fixture) loadAs(t *testing.T, u model.User) {
	t.Helper()
	if err := f.store.LoadInitialData(context.Background(), u.ID, u.IsAdmin()); err != nil {
		t.Fatalf("loading data: %v", err)
	}
}

// recorder is an Observer that remembers what it saw.
type recorder struct {
	mu          sync.Mutex
	mutations   []string
	sideEffects []string
	loads       int
}

func (r *recorder) ObserveMutation(entity model.EntityType, action string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.mutations = append(r.mutations, action+":"+result)
}

func (r *recorder) ObserveSideEffectFailure(kind string, entity model.EntityType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sideEffects = append(r.sideEffects, kind+":"+string(entity))
}

func (r *recorder) ObserveLoad(time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
}

// Failure-injecting wrappers. Each embeds the real remote and overrides the
// calls under test.

type failingAudit struct{ AuditRemote }

func (failingAudit) Create(context.Context, model.AuditLog) (model.AuditLog, error) {
	return model.AuditLog{}, errBoom
}

type failingActivities struct{ ActivityRemote }

func (failingActivities) Create(context.Context, model.Activity) (model.Activity, error) {
	return model.Activity{}, errBoom
}

type failingPropertyCreate struct{ PropertyRemote }

func (failingPropertyCreate) Create(context.Context, model.Property) (model.Property, error) {
	return model.Property{}, errBoom
}

type failingLeadFetch struct{ LeadRemote }

func (failingLeadFetch) GetByUser(context.Context, string, bool) ([]model.Lead, error) {
	return nil, errBoom
}

// switchableLeadFetch fails GetByUser while *broken is set.
type switchableLeadFetch struct {
	LeadRemote
	broken *bool
}

func (s switchableLeadFetch) GetByUser(ctx context.Context, userID string, isAdmin bool) ([]model.Lead, error) {
	if *s.broken {
		return nil, errBoom
	}
	return s.LeadRemote.GetByUser(ctx, userID, isAdmin)
}

// refreshingPropertyCreate reloads the store after the remote write and
// before CreateProperty commits, the way a polling dashboard can.
type refreshingPropertyCreate struct {
	PropertyRemote
	store  **Store
	userID string
}

func (r refreshingPropertyCreate) Create(ctx context.Context, p model.Property) (model.Property, error) {
	created, err := r.PropertyRemote.Create(ctx, p)
	if err != nil {
		return created, err
	}
	if err := (*r.store).RefreshData(ctx, r.userID, true); err != nil {
		return model.Property{}, err
	}
	return created, nil
}

type failingStats struct{}

func (failingStats) Stats(context.Context, string, bool) (model.Stats, error) {
	return model.Stats{}, errBoom
}

// memLogs is an in-memory activity and audit remote with sequential ids.
type memLogs struct {
	mu sync.Mutex
	n  int
}

func (m *memLogs) next() (string, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	return "log-" + strconv.Itoa(m.n), time.Unix(int64(m.n), 0).UTC()
}

func (m *memLogs) GetByUser(context.Context, string, bool) ([]model.Activity, error) {
	return []model.Activity{}, nil
}

func (m *memLogs) Create(_ context.Context, a model.Activity) (model.Activity, error) {
	a.ID, a.CreatedAt = m.next()
	return a, nil
}

type memAudit struct{ *memLogs }

func (m memAudit) List(context.Context, int) ([]model.AuditLog, error) {
	return []model.AuditLog{}, nil
}

func (m memAudit) Create(_ context.Context, a model.AuditLog) (model.AuditLog, error) {
	a.ID, a.CreatedAt = m.next()
	return a, nil
}

// memProperties creates properties without touching a database.
type memProperties struct {
	PropertyRemote
	ids memLogs
}

func (m *memProperties) Create(_ context.Context, p model.Property) (model.Property, error) {
	p.ID, p.CreatedAt = m.ids.next()
	p.UpdatedAt = p.CreatedAt
	return p, nil
}
