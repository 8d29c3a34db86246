package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/model"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email or a
// wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserRepository manages user profiles and their password hashes.
type UserRepository struct {
	db       *db.DB
	hashCost int
}

// NewUserRepository creates a user repository.
func NewUserRepository(d *db.DB) *UserRepository {
	return &UserRepository{db: d, hashCost: bcrypt.DefaultCost}
}

// SetHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (r *UserRepository) SetHashCost(cost int) {
	r.hashCost = cost
}

const userColumns = `id, email, full_name, role, status, avatar, phone, last_login, created_at, updated_at`

func scanUser(row scanner) (model.User, error) {
	var u model.User
	var avatar, phone sql.NullString
	var lastLogin sql.NullTime

	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.Status, &avatar, &phone,
		&lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}

	u.Avatar = nullString(avatar)
	u.Phone = nullString(phone)
	u.LastLogin = nullTime(lastLogin)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

// GetAll returns every user ordered by name.
func (r *UserRepository) GetAll(ctx context.Context) ([]model.User, error) {
	users, err := queryAll(ctx, r.db, scanUser,
		"SELECT "+userColumns+" FROM users ORDER BY full_name, email")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// GetByID returns a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (model.User, error) {
	return queryOne(ctx, r.db, scanUser, "user "+id,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetByEmail returns a user by email, ignoring case.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = normalizeEmail(email)
	return queryOne(ctx, r.db, scanUser, "user "+email,
		"SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

// Create hashes the password and inserts a new user.
func (r *UserRepository) Create(ctx context.Context, nu model.NewUser) (model.User, error) {
	email := normalizeEmail(nu.Email)
	if email == "" {
		return model.User{}, fmt.Errorf("%w: email is required", ErrInvalid)
	}
	if len(nu.Password) < model.MinPasswordLength {
		return model.User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalid, model.MinPasswordLength)
	}
	role := nu.Role
	if role == "" {
		role = model.RoleUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), r.hashCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hashing password: %w", err)
	}

	id := newID()
	ts := now()

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO users
		(id, email, full_name, role, status, password_hash, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, email, strings.TrimSpace(nu.FullName), role, model.UserStatusActive, string(hash), nu.Phone, ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, fmt.Errorf("user %s: %w", email, ErrDuplicate)
		}
		return model.User{}, fmt.Errorf("inserting user: %w", err)
	}

	return r.GetByID(ctx, id)
}

// Update applies a partial profile update.
func (r *UserRepository) Update(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	var s setter
	if patch.FullName != nil {
		s.set("full_name", strings.TrimSpace(*patch.FullName))
	}
	if patch.Role != nil {
		s.set("role", *patch.Role)
	}
	if patch.Status != nil {
		s.set("status", *patch.Status)
	}
	if patch.Avatar != nil {
		s.set("avatar", *patch.Avatar)
	}
	if patch.Phone != nil {
		s.set("phone", *patch.Phone)
	}
	s.set("updated_at", now())

	if err := s.exec(ctx, r.db, "users", id); err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a user. Their sessions go with them.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM users WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return requireRow(result, "users", id)
}

// ToggleStatus flips a user between active and inactive in a single
// statement. Suspended users are left alone and yield ErrConflict.
func (r *UserRepository) ToggleStatus(ctx context.Context, id string) (model.User, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users
		SET status = CASE status WHEN 'active' THEN 'inactive' ELSE 'active' END,
		    updated_at = ?
		WHERE id = ? AND status IN ('active', 'inactive')`),
		now(), id,
	)
	if err != nil {
		return model.User{}, fmt.Errorf("toggling user status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return model.User{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		u, err := r.GetByID(ctx, id)
		if err != nil {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("user %s is %s: %w", id, u.Status, ErrConflict)
	}

	return r.GetByID(ctx, id)
}

// ChangePassword replaces the user's password hash.
func (r *UserRepository) ChangePassword(ctx context.Context, id, password string) error {
	if len(password) < model.MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalid, model.MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.hashCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?"),
		string(hash), now(), id)
	if err != nil {
		return fmt.Errorf("changing password: %w", err)
	}
	return requireRow(result, "users", id)
}

// Authenticate checks an email and password pair and returns the matching user.
func (r *UserRepository) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	var id, hash string
	err := r.db.QueryRowContext(ctx,
		r.db.Rebind("SELECT id, password_hash FROM users WHERE email = ?"),
		normalizeEmail(email),
	).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, fmt.Errorf("querying credentials: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return model.User{}, ErrInvalidCredentials
	}

	return r.GetByID(ctx, id)
}

// RecordLogin stamps the user's last_login.
func (r *UserRepository) RecordLogin(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE users SET last_login = ? WHERE id = ?"), now(), id)
	if err != nil {
		return fmt.Errorf("recording login: %w", err)
	}
	return requireRow(result, "users", id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
