package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for a token that is malformed, badly signed,
// expired or bound to a revoked session.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are carried in every access token. Subject is the user id and ID
// is the session id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 access tokens.
type Tokens struct {
	secret []byte
}

// NewTokens creates a token signer for the given secret.
func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret)}
}

// Sign issues a token for a session.
func (t *Tokens) Sign(sessionID, userID, email string, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token's signature and expiry and returns its claims.
func (t *Tokens) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing session or subject", ErrInvalidToken)
	}
	return claims, nil
}
