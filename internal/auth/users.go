package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evcraddock/estate-crm/internal/model"
	"github.com/evcraddock/estate-crm/internal/repository"
)

// AdminStore is the part of the user repository needed to bootstrap the
// first administrator.
type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, nu model.NewUser) (model.User, error)
	Update(ctx context.Context, id string, patch model.UserPatch) (model.User, error)
}

// EnsureAdmin makes sure the configured admin account exists, is active and
// holds the admin role. It reports whether a new account was created. An
// existing account keeps its password.
func EnsureAdmin(ctx context.Context, users AdminStore, cfg Config) (model.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		return model.User{}, false, fmt.Errorf("admin email is required")
	}

	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() && existing.Status == model.UserStatusActive {
			return existing, false, nil
		}
		role, status := model.RoleAdmin, model.UserStatusActive
		updated, err := users.Update(ctx, existing.ID, model.UserPatch{Role: &role, Status: &status})
		if err != nil {
			return model.User{}, false, fmt.Errorf("promoting admin: %w", err)
		}
		return updated, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return model.User{}, false, fmt.Errorf("looking up admin: %w", err)
	}

	if cfg.AdminPassword == "" {
		return model.User{}, false, fmt.Errorf("admin password is required to create %s", email)
	}

	created, err := users.Create(ctx, model.NewUser{
		Email:    email,
		FullName: cfg.AdminName,
		Role:     model.RoleAdmin,
		Password: cfg.AdminPassword,
	})
	if err != nil {
		return model.User{}, false, fmt.Errorf("creating admin: %w", err)
	}
	return created, true, nil
}
