// Package identity resolves the signed-in user for a client session. It
// turns a session token into a profile, enforces that the account is active
// and bounds the lookups and the initial store load with timeouts.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/evcraddock/estate-crm/internal/model"
)

const (
	// DefaultLookupTimeout bounds each profile lookup.
	DefaultLookupTimeout = 5 * time.Second
	// DefaultLoadTimeout is the ceiling on the initial store load.
	DefaultLoadTimeout = 10 * time.Second
)

var (
	// ErrNotSignedIn is returned when an operation needs a current identity.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrInactiveAccount is returned when the resolved profile is not active.
	// The session is signed out before it is returned.
	ErrInactiveAccount = errors.New("account is not active")
)

// Identity is the resolved current user.
type Identity struct {
	UserID    string
	Email     string
	Role      model.Role
	Token     string
	ExpiresAt time.Time
	Profile   model.User
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == model.RoleAdmin }

// Authenticator manages the session token.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (model.Session, error)
	SignOut(ctx context.Context) error
	Session(ctx context.Context) (model.Session, error)
	SetToken(token string)
}

// ProfileLookup fetches user profiles.
type ProfileLookup interface {
	GetByID(ctx context.Context, id string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// Loader is the bulk load the provider bounds with its load timeout.
type Loader interface {
	LoadInitialData(ctx context.Context, userID string, isAdmin bool) error
}

// Option configures a Provider.
type Option func(*Provider)

// WithFallback sets a lookup used when the primary lookup times out.
func WithFallback(l ProfileLookup) Option {
	return func(p *Provider) { p.fallback = l }
}

// WithLookupTimeout overrides DefaultLookupTimeout.
func WithLookupTimeout(d time.Duration) Option {
	return func(p *Provider) { p.lookupTimeout = d }
}

// WithLoadTimeout overrides DefaultLoadTimeout.
func WithLoadTimeout(d time.Duration) Option {
	return func(p *Provider) { p.loadTimeout = d }
}

// WithLogger sets the provider logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// Provider tracks the current identity. It is safe for concurrent use.
type Provider struct {
	auth          Authenticator
	profiles      ProfileLookup
	fallback      ProfileLookup
	lookupTimeout time.Duration
	loadTimeout   time.Duration
	logger        *slog.Logger

	mu      sync.RWMutex
	current *Identity
}

// New creates a provider.
func New(auth Authenticator, profiles ProfileLookup, opts ...Option) *Provider {
	p := &Provider{
		auth:          auth,
		profiles:      profiles,
		lookupTimeout: DefaultLookupTimeout,
		loadTimeout:   DefaultLoadTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SignIn authenticates and resolves the profile behind the new session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	sess, err := p.auth.SignIn(ctx, email, password)
	if err != nil {
		return Identity{}, fmt.Errorf("signing in: %w", err)
	}
	return p.resolve(ctx, sess)
}

// Restore resumes a previously issued token.
func (p *Provider) Restore(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrNotSignedIn
	}
	p.auth.SetToken(token)
	sess, err := p.auth.Session(ctx)
	if err != nil {
		p.auth.SetToken("")
		return Identity{}, fmt.Errorf("restoring session: %w", err)
	}
	if sess.Token == "" {
		sess.Token = token
	}
	return p.resolve(ctx, sess)
}

// SignOut ends the session and forgets the current identity.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()

	if err := p.auth.SignOut(ctx); err != nil {
		return fmt.Errorf("signing out: %w", err)
	}
	return nil
}

// Current returns the resolved identity, if any.
func (p *Provider) Current() (Identity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return Identity{}, false
	}
	return *p.current, true
}

// HasRole reports whether the current identity holds one of roles.
func (p *Provider) HasRole(roles ...model.Role) bool {
	id, ok := p.Current()
	return ok && slices.Contains(roles, id.Role)
}

// LoadStore runs the loader for the current identity under the load timeout.
func (p *Provider) LoadStore(ctx context.Context, loader Loader) error {
	id, ok := p.Current()
	if !ok {
		return ErrNotSignedIn
	}

	ctx, cancel := context.WithTimeout(ctx, p.loadTimeout)
	defer cancel()

	if err := loader.LoadInitialData(ctx, id.UserID, id.IsAdmin()); err != nil {
		return fmt.Errorf("loading store for %s: %w", id.UserID, err)
	}
	return nil
}

func (p *Provider) resolve(ctx context.Context, sess model.Session) (Identity, error) {
	profile, err := p.lookup(ctx, sess)
	if err != nil {
		return Identity{}, err
	}

	if profile.Status != model.UserStatusActive {
		p.logger.Warn("signing out inactive account", "user_id", profile.ID, "status", profile.Status)
		if err := p.SignOut(ctx); err != nil {
			p.logger.Warn("signing out inactive account", "user_id", profile.ID, "error", err)
		}
		return Identity{}, fmt.Errorf("user %s is %s: %w", profile.ID, profile.Status, ErrInactiveAccount)
	}

	id := Identity{
		UserID:    profile.ID,
		Email:     profile.Email,
		Role:      profile.Role,
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		Profile:   profile,
	}

	p.mu.Lock()
	p.current = &id
	p.mu.Unlock()
	return id, nil
}

// lookup resolves the session's profile, retrying through the fallback when
// the primary lookup runs out of time.
func (p *Provider) lookup(ctx context.Context, sess model.Session) (model.User, error) {
	u, err := p.lookupWith(ctx, p.profiles, sess)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil && p.fallback != nil {
		p.logger.Warn("profile lookup timed out, using fallback", "user_id", sess.UserID, "timeout", p.lookupTimeout)
		u, err = p.lookupWith(ctx, p.fallback, sess)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("looking up profile for %s: %w", sess.UserID, err)
	}
	return u, nil
}

// lookupWith tries the user id first and falls back to the email.
func (p *Provider) lookupWith(ctx context.Context, profiles ProfileLookup, sess model.Session) (model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, p.lookupTimeout)
	defer cancel()

	u, err := profiles.GetByID(ctx, sess.UserID)
	if err == nil {
		return u, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || sess.Email == "" {
		return model.User{}, err
	}

	p.logger.Debug("profile not found by id, trying email", "user_id", sess.UserID, "error", err)
	return profiles.GetByEmail(ctx, sess.Email)
}
