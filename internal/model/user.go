package model

import "time"

// Role is either admin or user. Admins see everything.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// UserStatus controls whether an account may sign in.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

// MinPasswordLength is the shortest password accepted on create or change.
const MinPasswordLength = 8

// User is an agent or administrator profile.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	Role      Role       `json:"role"`
	Status    UserStatus `json:"status"`
	Avatar    *string    `json:"avatar,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// NewUser is the payload for creating an account.
type NewUser struct {
	Email    string  `json:"email" validate:"required,email"`
	FullName string  `json:"full_name" validate:"required"`
	Role     Role    `json:"role" validate:"required,oneof=admin user"`
	Password string  `json:"password" validate:"required,min=8"`
	Phone    *string `json:"phone,omitempty"`
}

// UserPatch is a partial profile update. Nil fields are left untouched.
type UserPatch struct {
	FullName *string     `json:"full_name,omitempty"`
	Role     *Role       `json:"role,omitempty"`
	Status   *UserStatus `json:"status,omitempty"`
	Avatar   *string     `json:"avatar,omitempty"`
	Phone    *string     `json:"phone,omitempty"`
}
