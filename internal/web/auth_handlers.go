package web

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/evcraddock/estate-crm/internal/auth"
	"github.com/evcraddock/estate-crm/internal/model"
	"github.com/evcraddock/estate-crm/internal/repository"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// handleSignIn exchanges an email and password for a session token.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if !decodeJSON(w, r, &creds) {
		return
	}
	if err := validate.Struct(creds); err != nil {
		apiError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	user, err := s.users.Authenticate(r.Context(), creds.Email, creds.Password)
	if errors.Is(err, repository.ErrInvalidCredentials) {
		apiError(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if user.Status != model.UserStatusActive {
		apiError(w, "account is not active", http.StatusForbidden)
		return
	}

	if err := s.users.RecordLogin(r.Context(), user.ID); err != nil {
		s.log(r).Warn("recording login", "user_id", user.ID, "error", err)
	}

	sess, err := s.sessions.Create(r.Context(), user)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.log(r).Info("signed in", "user_id", user.ID)
	apiJSON(w, sess, http.StatusOK)
}

// handleSignOut destroys the caller's session. Signing out without a valid
// token is not an error.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if token, ok := auth.BearerToken(r); ok {
		if err := s.sessions.Destroy(r.Context(), token); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSession describes the session behind the bearer token.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.BearerToken(r)
	if !ok {
		apiError(w, "authorization required", http.StatusUnauthorized)
		return
	}

	sess, err := s.sessions.Session(r.Context(), token)
	if errors.Is(err, auth.ErrInvalidToken) {
		apiError(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, sess, http.StatusOK)
}
