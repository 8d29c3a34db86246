package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/evcraddock/estate-crm/internal/model"
	"github.com/evcraddock/estate-crm/internal/repository"
)

// targetUser returns the user a per-user endpoint acts on: always the
// caller for non-admins, or the named query parameter for admins.
func targetUser(r *http.Request, param string) string {
	caller := principal(r)
	if caller.IsAdmin() {
		if v := r.URL.Query().Get(param); v != "" {
			return v
		}
	}
	return caller.UserID
}

// selfOrAdmin rejects non-admins acting on another user's records.
func selfOrAdmin(r *http.Request, userID string) error {
	caller := principal(r)
	if caller.IsAdmin() || caller.UserID == userID {
		return nil
	}
	return fmt.Errorf("user %s: %w", userID, errForbidden)
}

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	userID, isAdmin := scope(r)
	activities, err := s.activities.GetByUser(r.Context(), userID, isAdmin)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, list(activities), http.StatusOK)
}

func (s *Server) createActivity(w http.ResponseWriter, r *http.Request) {
	var a model.Activity
	if !decodeJSON(w, r, &a) {
		return
	}
	caller := principal(r)
	if !caller.IsAdmin() || a.UserID == "" {
		a.UserID = caller.UserID
	}

	created, err := s.activities.Create(r.Context(), a)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, created, http.StatusCreated)
}

func (s *Server) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := model.AuditLogLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			apiError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	logs, err := s.audit.List(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, list(logs), http.StatusOK)
}

func (s *Server) createAuditLog(w http.ResponseWriter, r *http.Request) {
	var a model.AuditLog
	if !decodeJSON(w, r, &a) {
		return
	}
	caller := principal(r)
	if !caller.IsAdmin() || a.UserID == "" {
		a.UserID = caller.UserID
	}

	created, err := s.audit.Create(r.Context(), a)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, created, http.StatusCreated)
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := s.notifications.GetForUser(r.Context(), targetUser(r, "user_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, list(notifications), http.StatusOK)
}

func (s *Server) createNotification(w http.ResponseWriter, r *http.Request) {
	var n model.Notification
	if !decodeJSON(w, r, &n) {
		return
	}
	caller := principal(r)
	if !caller.IsAdmin() || n.SenderID == nil {
		n.SenderID = &caller.UserID
	}

	created, err := s.notifications.Create(r.Context(), n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, created, http.StatusCreated)
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	n, err := s.notifications.GetByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	caller := principal(r)
	if !caller.IsAdmin() && n.RecipientID != caller.UserID {
		s.fail(w, r, fmt.Errorf("notification %s: %w", id, repository.ErrNotFound))
		return
	}

	n, err = s.notifications.MarkAsRead(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, n, http.StatusOK)
}

func (s *Server) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if err := s.notifications.MarkAllAsRead(r.Context(), targetUser(r, "user_id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listAnnouncements(w http.ResponseWriter, r *http.Request) {
	var (
		announcements []model.Announcement
		err           error
	)
	if principal(r).IsAdmin() && r.URL.Query().Get("all") == "true" {
		announcements, err = s.announcements.GetAll(r.Context())
	} else {
		announcements, err = s.announcements.GetActive(r.Context())
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, list(announcements), http.StatusOK)
}

func (s *Server) createAnnouncement(w http.ResponseWriter, r *http.Request) {
	var a model.Announcement
	if !decodeJSON(w, r, &a) {
		return
	}
	a.CreatedBy = principal(r).UserID

	created, err := s.announcements.Create(r.Context(), a)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, created, http.StatusCreated)
}

func (s *Server) listRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := s.rewards.GetAll(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, list(rewards), http.StatusOK)
}

func (s *Server) createReward(w http.ResponseWriter, r *http.Request) {
	var rw model.Reward
	if !decodeJSON(w, r, &rw) {
		return
	}
	created, err := s.rewards.Create(r.Context(), rw)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, created, http.StatusCreated)
}

func (s *Server) listUserRewards(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if err := selfOrAdmin(r, userID); err != nil {
		s.fail(w, r, err)
		return
	}
	rewards, err := s.rewards.GetUserRewards(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, list(rewards), http.StatusOK)
}

func (s *Server) upsertUserReward(w http.ResponseWriter, r *http.Request) {
	var ur model.UserReward
	if !decodeJSON(w, r, &ur) {
		return
	}
	if err := selfOrAdmin(r, ur.UserID); err != nil {
		s.fail(w, r, err)
		return
	}

	saved, err := s.rewards.UpsertUserReward(r.Context(), ur)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, saved, http.StatusOK)
}

func (s *Server) listReferrals(w http.ResponseWriter, r *http.Request) {
	earnings, err := s.referrals.GetForReferrer(r.Context(), targetUser(r, "referrer_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, list(earnings), http.StatusOK)
}

func (s *Server) createReferral(w http.ResponseWriter, r *http.Request) {
	var e model.ReferralEarning
	if !decodeJSON(w, r, &e) {
		return
	}
	created, err := s.referrals.Create(r.Context(), e)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, created, http.StatusCreated)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	caller := principal(r)
	stats, err := s.stats.Stats(r.Context(), caller.UserID, caller.IsAdmin())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, stats, http.StatusOK)
}
