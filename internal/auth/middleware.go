package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/evcraddock/estate-crm/internal/model"
)

// UserLookup resolves the profile behind a session.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (model.User, error)
}

// Principal is the authenticated caller of an API request.
type Principal struct {
	UserID    string
	Email     string
	Role      model.Role
	SessionID string
	Token     string
}

// IsAdmin reports whether the caller holds the admin role.
func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller stored by RequireAuth.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// rateLimiter tracks failed bearer attempts per IP.
type rateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{attempts: make(map[string][]time.Time)}
}

const (
	rateLimitWindow  = 1 * time.Minute
	rateLimitMaxFail = 10
)

// prune drops attempts outside the window and returns what is left.
// Caller holds mu.
func (rl *rateLimiter) prune(ip string, now time.Time) []time.Time {
	cutoff := now.Add(-rateLimitWindow)
	valid := rl.attempts[ip][:0]
	for _, t := range rl.attempts[ip] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(rl.attempts, ip)
		return nil
	}
	rl.attempts[ip] = valid
	return valid
}

// limited reports whether ip has used up its failures for the window.
func (rl *rateLimiter) limited(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.prune(ip, time.Now())) >= rateLimitMaxFail
}

// recordFailure records a failed attempt.
func (rl *rateLimiter) recordFailure(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	rl.attempts[ip] = append(rl.prune(ip, now), now)
}

// Authenticator wraps API handlers with bearer token checks.
type Authenticator struct {
	sessions *SessionStore
	users    UserLookup
	limiter  *rateLimiter
	logger   *slog.Logger
}

// NewAuthenticator creates bearer auth middleware backed by sessions and
// the user table.
func NewAuthenticator(sessions *SessionStore, users UserLookup, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{sessions: sessions, users: users, limiter: newRateLimiter(), logger: logger}
}

// RequireAuth rejects requests without a valid bearer token for an active
// user. Returns 401 for missing or invalid tokens, 403 for accounts that are
// not active and 429 for rate-limited IPs.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if a.limiter.limited(ip) {
			writeError(w, "too many requests", http.StatusTooManyRequests)
			return
		}

		token, ok := BearerToken(r)
		if !ok {
			writeError(w, "authorization required", http.StatusUnauthorized)
			return
		}

		claims, err := a.sessions.Validate(r.Context(), token)
		if err != nil {
			if !errors.Is(err, ErrInvalidToken) {
				a.logger.Error("validating session", "error", err)
				writeError(w, "internal error", http.StatusInternalServerError)
				return
			}
			a.limiter.recordFailure(ip)
			writeError(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}

		user, err := a.users.GetByID(r.Context(), claims.Subject)
		if err != nil {
			a.limiter.recordFailure(ip)
			writeError(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		if user.Status != model.UserStatusActive {
			writeError(w, "account is not active", http.StatusForbidden)
			return
		}

		p := Principal{UserID: user.ID, Email: user.Email, Role: user.Role, SessionID: claims.ID, Token: token}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireAdmin rejects callers without the admin role. It must run inside
// RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			writeError(w, "authorization required", http.StatusUnauthorized)
			return
		}
		if !p.IsAdmin() {
			writeError(w, "admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}
