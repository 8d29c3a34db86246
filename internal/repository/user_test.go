package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/evcraddock/estate-crm/internal/model"
)

func newTestUser(t *testing.T, repo *UserRepository, email string) model.User {
	t.Helper()
	u, err := repo.Create(context.Background(), model.NewUser{
		Email:    email,
		FullName: "Test User",
		Role:     model.RoleUser,
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("creating user %s: %v", email, err)
	}
	return u
}

func TestUserCreate(t *testing.T) {
	repo := testUsers(t, testDB(t))

	u := newTestUser(t, repo, "  Agent@Example.COM ")
	if u.Email != "agent@example.com" {
		t.Errorf("email = %q, want normalized", u.Email)
	}
	if u.Status != model.UserStatusActive {
		t.Errorf("status = %q, want active", u.Status)
	}

	_, err := repo.Create(context.Background(), model.NewUser{
		Email: "agent@example.com", FullName: "Dup", Role: model.RoleUser, Password: "another-pass",
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate create: err = %v, want ErrDuplicate", err)
	}
}

func TestUserCreateShortPassword(t *testing.T) {
	repo := testUsers(t, testDB(t))
	_, err := repo.Create(context.Background(), model.NewUser{Email: "a@b.co", Password: "short"})
	if err == nil {
		t.Error("expected error for short password")
	}
}

func TestUserGetByEmailIgnoresCase(t *testing.T) {
	repo := testUsers(t, testDB(t))
	u := newTestUser(t, repo, "agent@example.com")

	got, err := repo.GetByEmail(context.Background(), "AGENT@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("id = %q, want %q", got.ID, u.ID)
	}
}

func TestUserAuthenticate(t *testing.T) {
	repo := testUsers(t, testDB(t))
	ctx := context.Background()
	u := newTestUser(t, repo, "agent@example.com")

	got, err := repo.Authenticate(ctx, "agent@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("id = %q, want %q", got.ID, u.ID)
	}

	if _, err := repo.Authenticate(ctx, "agent@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := repo.Authenticate(ctx, "nobody@example.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestUserChangePassword(t *testing.T) {
	repo := testUsers(t, testDB(t))
	ctx := context.Background()
	u := newTestUser(t, repo, "agent@example.com")

	if err := repo.ChangePassword(ctx, u.ID, "short"); err == nil {
		t.Error("expected error for short password")
	}
	if err := repo.ChangePassword(ctx, u.ID, "battery-staple"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := repo.Authenticate(ctx, u.Email, "battery-staple"); err != nil {
		t.Errorf("authenticate with new password: %v", err)
	}
	if _, err := repo.Authenticate(ctx, u.Email, "correct-horse"); err == nil {
		t.Error("old password still accepted")
	}
}

func TestUserToggleStatus(t *testing.T) {
	repo := testUsers(t, testDB(t))
	ctx := context.Background()
	u := newTestUser(t, repo, "agent@example.com")

	got, err := repo.ToggleStatus(ctx, u.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if got.Status != model.UserStatusInactive {
		t.Errorf("status = %q, want inactive", got.Status)
	}

	got, err = repo.ToggleStatus(ctx, u.ID)
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if got.Status != model.UserStatusActive {
		t.Errorf("status = %q, want active", got.Status)
	}

	suspended := model.UserStatusSuspended
	if _, err := repo.Update(ctx, u.ID, model.UserPatch{Status: &suspended}); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if _, err := repo.ToggleStatus(ctx, u.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("toggle suspended: err = %v, want ErrConflict", err)
	}
	if _, err := repo.ToggleStatus(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("toggle missing: err = %v, want ErrNotFound", err)
	}
}

func TestUserRecordLoginAndDelete(t *testing.T) {
	repo := testUsers(t, testDB(t))
	ctx := context.Background()
	u := newTestUser(t, repo, "agent@example.com")

	if err := repo.RecordLogin(ctx, u.ID); err != nil {
		t.Fatalf("record login: %v", err)
	}
	got, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastLogin == nil {
		t.Error("expected last_login to be set")
	}

	if err := repo.Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: err = %v, want ErrNotFound", err)
	}
}
