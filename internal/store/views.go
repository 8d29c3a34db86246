package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/evcraddock/estate-crm/internal/model"
)

// PropertiesForUser returns every cached property; listings are visible in
// full to every role.
func (s *Store) PropertiesForUser(userID string, isAdmin bool) []model.Property {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.properties)
}

// DealsForUser returns every cached deal; agents see the whole pipeline.
func (s *Store) DealsForUser(userID string, isAdmin bool) []model.Deal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.deals)
}

// LeadsForUser returns all leads for admins, otherwise only the leads the
// user created or is assigned to.
func (s *Store) LeadsForUser(userID string, isAdmin bool) []model.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if isAdmin {
		return slices.Clone(s.leads)
	}
	return filter(s.leads, func(l model.Lead) bool { return l.VisibleTo(userID) })
}

// ActivitiesForUser returns the whole feed for admins, otherwise only the
// user's own entries.
func (s *Store) ActivitiesForUser(userID string, isAdmin bool) []model.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if isAdmin {
		return slices.Clone(s.activities)
	}
	return filter(s.activities, func(a model.Activity) bool { return a.UserID == userID })
}

// Users returns every cached user.
func (s *Store) Users() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.users)
}

// User returns a cached user by id.
func (s *Store) User(id string) (model.User, bool) {
	return s.cachedUser(id)
}

// Property returns a cached property by id.
func (s *Store) Property(id string) (model.Property, bool) {
	return s.cachedProperty(id)
}

// AuditLogs returns cached audit entries matching every non-empty field of f.
// Action matches as a substring.
func (s *Store) AuditLogs(f model.AuditFilter) []model.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter(s.auditLogs, func(a model.AuditLog) bool {
		if f.UserID != "" && a.UserID != f.UserID {
			return false
		}
		if f.EntityType != "" && a.EntityType != f.EntityType {
			return false
		}
		if f.Action != "" && !strings.Contains(a.Action, f.Action) {
			return false
		}
		return true
	})
}

// LoadAuditLogs replaces the cached audit trail with the newest entries from
// the remote.
func (s *Store) LoadAuditLogs(ctx context.Context) error {
	entries, err := s.remote.Audit.List(ctx, model.AuditLogLimit)
	if err != nil {
		return fmt.Errorf("loading audit logs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs = capFront(entries, model.AuditLogLimit)
	return nil
}

// UserActivitySummary counts what a user has done across the full cache,
// regardless of who is asking.
func (s *Store) UserActivitySummary(userID string) model.ActivitySummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum model.ActivitySummary
	for _, l := range s.leads {
		if l.CreatedBy == userID {
			sum.LeadsCreated++
		}
	}
	for _, p := range s.properties {
		if p.CreatedBy == userID {
			sum.PropertiesCreated++
		}
	}
	for _, d := range s.deals {
		if (d.CreatedBy != nil && *d.CreatedBy == userID) || d.CloserID == userID {
			sum.Deals++
		}
	}
	return sum
}

// GetStats asks the remote for dashboard aggregates. A failure yields zeroed
// stats so the dashboard still renders.
func (s *Store) GetStats(ctx context.Context) model.Stats {
	s.mu.RLock()
	userID, isAdmin := s.currentUserID, s.isAdmin
	s.mu.RUnlock()

	stats, err := s.remote.Stats.Stats(ctx, userID, isAdmin)
	if err != nil {
		s.logger.Warn("fetching stats", "user_id", userID, "error", err)
		return model.Stats{}
	}
	return stats
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, v := range items {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
