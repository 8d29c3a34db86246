// Package web provides the HTTP API server that backs the client-side
// cache store.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/evcraddock/estate-crm/internal/auth"
	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/logging"
	"github.com/evcraddock/estate-crm/internal/metrics"
	"github.com/evcraddock/estate-crm/internal/repository"
)

// Server is the API HTTP server.
type Server struct {
	properties    *repository.PropertyRepository
	leads         *repository.LeadRepository
	deals         *repository.DealRepository
	activities    *repository.ActivityRepository
	audit         *repository.AuditRepository
	users         *repository.UserRepository
	notifications *repository.NotificationRepository
	announcements *repository.AnnouncementRepository
	rewards       *repository.RewardRepository
	referrals     *repository.ReferralRepository
	stats         *repository.StatsRepository

	sessions *auth.SessionStore
	authn    *auth.Authenticator
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mux     *http.ServeMux
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics sets the metrics registry served at /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHashCost overrides the bcrypt cost for new passwords.
func WithHashCost(cost int) Option {
	return func(s *Server) { s.users.SetHashCost(cost) }
}

// NewServer creates an API server over the given database and sessions.
func NewServer(d *db.DB, sessions *auth.SessionStore, opts ...Option) *Server {
	s := &Server{
		properties:    repository.NewPropertyRepository(d),
		leads:         repository.NewLeadRepository(d),
		deals:         repository.NewDealRepository(d),
		activities:    repository.NewActivityRepository(d),
		audit:         repository.NewAuditRepository(d),
		users:         repository.NewUserRepository(d),
		notifications: repository.NewNotificationRepository(d),
		announcements: repository.NewAnnouncementRepository(d),
		rewards:       repository.NewRewardRepository(d),
		referrals:     repository.NewReferralRepository(d),
		stats:         repository.NewStatsRepository(d),
		sessions:      sessions,
		logger:        slog.Default(),
		mux:           http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	s.authn = auth.NewAuthenticator(sessions, s.users, s.logger)
	s.routes()
	s.handler = logging.RequestLogger(s.logger, s.mux)
	return s
}

func (s *Server) routes() {
	s.handle("GET /health", http.HandlerFunc(s.handleHealth))
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	s.handle("POST /auth/signin", http.HandlerFunc(s.handleSignIn))
	s.handle("POST /auth/signout", http.HandlerFunc(s.handleSignOut))
	s.handle("GET /auth/session", http.HandlerFunc(s.handleSession))

	s.api("GET /api/properties", s.listProperties)
	s.api("POST /api/properties", s.createProperty)
	s.api("GET /api/properties/{id}", s.getProperty)
	s.api("PATCH /api/properties/{id}", s.updateProperty)
	s.api("DELETE /api/properties/{id}", s.deleteProperty)

	s.api("GET /api/leads", s.listLeads)
	s.api("POST /api/leads", s.createLead)
	s.api("GET /api/leads/{id}", s.getLead)
	s.api("PATCH /api/leads/{id}", s.updateLead)
	s.api("DELETE /api/leads/{id}", s.deleteLead)

	s.api("GET /api/deals", s.listDeals)
	s.api("POST /api/deals", s.createDeal)
	s.api("GET /api/deals/{id}", s.getDeal)
	s.api("PATCH /api/deals/{id}", s.updateDeal)

	s.api("GET /api/activities", s.listActivities)
	s.api("POST /api/activities", s.createActivity)

	s.admin("GET /api/audit-logs", s.listAuditLogs)
	s.api("POST /api/audit-logs", s.createAuditLog)

	s.api("GET /api/users", s.listUsers)
	s.admin("POST /api/users", s.createUser)
	s.api("GET /api/users/by-email", s.getUserByEmail)
	s.api("GET /api/users/{id}", s.getUser)
	s.api("PATCH /api/users/{id}", s.updateUser)
	s.admin("DELETE /api/users/{id}", s.deleteUser)
	s.admin("POST /api/users/{id}/toggle-status", s.toggleUserStatus)
	s.api("PUT /api/users/{id}/password", s.changePassword)
	s.api("GET /api/users/{id}/rewards", s.listUserRewards)

	s.api("GET /api/notifications", s.listNotifications)
	s.api("POST /api/notifications", s.createNotification)
	s.api("POST /api/notifications/read-all", s.markAllNotificationsRead)
	s.api("POST /api/notifications/{id}/read", s.markNotificationRead)

	s.api("GET /api/announcements", s.listAnnouncements)
	s.admin("POST /api/announcements", s.createAnnouncement)

	s.api("GET /api/rewards", s.listRewards)
	s.admin("POST /api/rewards", s.createReward)
	s.api("PUT /api/user-rewards", s.upsertUserReward)

	s.api("GET /api/referrals", s.listReferrals)
	s.admin("POST /api/referrals", s.createReferral)

	s.api("GET /api/stats", s.getStats)
}

// handle registers h under pattern with request metrics.
func (s *Server) handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, s.metrics.Instrument(pattern, h))
}

// api registers an authenticated endpoint.
func (s *Server) api(pattern string, h http.HandlerFunc) {
	s.handle(pattern, s.authn.RequireAuth(h))
}

// admin registers an endpoint restricted to admins.
func (s *Server) admin(pattern string, h http.HandlerFunc) {
	s.handle(pattern, s.authn.RequireAuth(auth.RequireAdmin(h)))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. Expired sessions are purged hourly while running.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.cleanupSessions(ctx, time.Hour)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) cleanupSessions(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sessions.Cleanup(ctx); err != nil {
				s.logger.Warn("cleaning up sessions", "error", err)
			}
		}
	}
}
