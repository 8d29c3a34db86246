package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/model"
)

// SessionStore issues access tokens and tracks the sessions behind them so
// a token stops working as soon as its session is destroyed.
type SessionStore struct {
	db     *db.DB
	tokens *Tokens
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionStore creates a session store. A non-positive ttl uses
// DefaultTokenTTL.
func NewSessionStore(d *db.DB, tokens *Tokens, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &SessionStore{db: d, tokens: tokens, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// Create starts a session for the user and returns its signed token.
func (s *SessionStore) Create(ctx context.Context, user model.User) (model.Session, error) {
	id := uuid.NewString()
	issuedAt := s.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl)

	if _, err := s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)"),
		id, user.ID, expiresAt, issuedAt,
	); err != nil {
		return model.Session{}, fmt.Errorf("storing session: %w", err)
	}

	token, err := s.tokens.Sign(id, user.ID, user.Email, issuedAt, expiresAt)
	if err != nil {
		return model.Session{}, err
	}

	return model.Session{Token: token, UserID: user.ID, Email: user.Email, ExpiresAt: expiresAt}, nil
}

// Validate checks the token and its backing session row.
func (s *SessionStore) Validate(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	var userID string
	var expiresAt time.Time
	err = s.db.QueryRowContext(ctx,
		s.db.Rebind("SELECT user_id, expires_at FROM sessions WHERE id = ?"),
		claims.ID,
	).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session revoked", ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if userID != claims.Subject {
		return nil, fmt.Errorf("%w: session belongs to another user", ErrInvalidToken)
	}

	if s.now().After(expiresAt) {
		// Clean up expired session
		if _, delErr := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM sessions WHERE id = ?"), claims.ID); delErr != nil {
			return nil, fmt.Errorf("deleting expired session: %w", delErr)
		}
		return nil, fmt.Errorf("%w: session expired", ErrInvalidToken)
	}

	return claims, nil
}

// Session returns the session view of a valid token.
func (s *SessionStore) Session(ctx context.Context, token string) (model.Session, error) {
	claims, err := s.Validate(ctx, token)
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{
		Token:     token,
		UserID:    claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

// Destroy removes the session behind a token. Unknown or invalid tokens are
// ignored.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil // no session to destroy
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM sessions WHERE id = ?"), claims.ID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DestroyForUser removes every session a user holds.
func (s *SessionStore) DestroyForUser(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM sessions WHERE user_id = ?"), userID); err != nil {
		return fmt.Errorf("deleting sessions for user: %w", err)
	}
	return nil
}

// Cleanup removes expired sessions.
func (s *SessionStore) Cleanup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		s.db.Rebind("DELETE FROM sessions WHERE expires_at < ?"),
		s.now(),
	); err != nil {
		return fmt.Errorf("cleaning up sessions: %w", err)
	}
	return nil
}
