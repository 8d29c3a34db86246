package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/evcraddock/estate-crm/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateUser validates the new user locally, rejects an email already in the
// cache, and creates the profile remotely.
func (s *Store) CreateUser(ctx context.Context, nu model.NewUser) (model.User, error) {
	actor, err := s.actor()
	if err != nil {
		return model.User{}, err
	}
	if err := validate.Struct(nu); err != nil {
		return model.User{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if s.emailTaken(nu.Email) {
		return model.User{}, fmt.Errorf("%w: email %s is already registered", ErrValidation, nu.Email)
	}

	created, err := s.remote.Users.Create(ctx, nu)
	s.observer.ObserveMutation(model.EntityUser, AuditUserCreated, err)
	if err != nil {
		return model.User{}, fmt.Errorf("creating user: %w", err)
	}

	w := s.record(ctx, actor, logs{
		activity: activity(model.ActionUserCreated, model.EntityUser, created.ID, displayName(created)),
		audit:    audit(AuditUserCreated, model.EntityUser, created.ID, nil, userSnapshot(created)),
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = upsert(s.users, created, userKey)
	s.appendLogs(w)
	return created, nil
}

// UpdateUser applies a partial profile update.
func (s *Store) UpdateUser(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	return s.mutateUser(ctx, id, AuditUserUpdated, func(ctx context.Context) (model.User, error) {
		return s.remote.Users.Update(ctx, id, patch)
	})
}

// ToggleUserStatus flips a user between active and inactive. The flip is
// computed by the remote, so concurrent toggles cannot both land on the same
// state from a stale read. Suspended users fail with ErrStatusLocked, whether
// the cache knows they are suspended or the remote refuses the flip.
func (s *Store) ToggleUserStatus(ctx context.Context, id string) (model.User, error) {
	if prior, ok := s.cachedUser(id); ok && prior.Status == model.UserStatusSuspended {
		return model.User{}, fmt.Errorf("toggling user %s: %w", id, ErrStatusLocked)
	}
	return s.mutateUser(ctx, id, AuditUserStatus, func(ctx context.Context) (model.User, error) {
		u, err := s.remote.Users.ToggleStatus(ctx, id)
		if errors.Is(err, model.ErrConflict) {
			return model.User{}, fmt.Errorf("%w: %w", ErrStatusLocked, err)
		}
		return u, err
	})
}

func (s *Store) mutateUser(ctx context.Context, id, action string, call func(context.Context) (model.User, error)) (model.User, error) {
	actor, err := s.actor()
	if err != nil {
		return model.User{}, err
	}
	prior, had := s.cachedUser(id)

	updated, err := call(ctx)
	s.observer.ObserveMutation(model.EntityUser, action, err)
	if err != nil {
		return model.User{}, fmt.Errorf("updating user %s: %w", id, err)
	}

	w := s.record(ctx, actor, logs{audit: audit(action, model.EntityUser, id,
		nilIfEmpty(userSnapshot(prior), had), userSnapshot(updated))})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = upsert(s.users, updated, userKey)
	s.appendLogs(w)
	return updated, nil
}

// DeleteUser removes a user from the remote and the cache.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	actor, err := s.actor()
	if err != nil {
		return err
	}
	prior, had := s.cachedUser(id)

	err = s.remote.Users.Delete(ctx, id)
	s.observer.ObserveMutation(model.EntityUser, AuditUserDeleted, err)
	if err != nil {
		return fmt.Errorf("deleting user %s: %w", id, err)
	}

	w := s.record(ctx, actor, logs{audit: audit(AuditUserDeleted, model.EntityUser, id,
		nilIfEmpty(userSnapshot(prior), had), nil)})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = remove(s.users, id, userKey)
	s.appendLogs(w)
	return nil
}

// ChangePassword sets a new password for the user after checking its length
// locally. The password itself never reaches the logs.
func (s *Store) ChangePassword(ctx context.Context, id, password string) error {
	actor, err := s.actor()
	if err != nil {
		return err
	}
	if err := validate.Var(password, fmt.Sprintf("required,min=%d", model.MinPasswordLength)); err != nil {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, model.MinPasswordLength)
	}

	err = s.remote.Users.ChangePassword(ctx, id, password)
	s.observer.ObserveMutation(model.EntityUser, AuditPasswordChanged, err)
	if err != nil {
		return fmt.Errorf("changing password for %s: %w", id, err)
	}

	name := id
	if u, ok := s.cachedUser(id); ok {
		name = displayName(u)
	}
	w := s.record(ctx, actor, logs{
		activity: activity(model.ActionPasswordChanged, model.EntityUser, id, name),
		audit:    audit(AuditPasswordChanged, model.EntityUser, id, nil, nil),
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLogs(w)
	return nil
}

func (s *Store) cachedUser(id string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.users, id, userKey)
}

func (s *Store) emailTaken(email string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(strings.TrimSpace(u.Email), strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}

func displayName(u model.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
