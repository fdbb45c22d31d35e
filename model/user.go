package model

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleUser        Role = "USER"
	RoleCoordinator Role = "COORDINATOR"
	RoleAdmin       Role = "ADMIN"
)

// ParseRole accepts a role name in any letter case.
func ParseRole(raw string) (Role, error) {
	switch role := Role(strings.ToUpper(strings.TrimSpace(raw))); role {
	case RoleUser, RoleCoordinator, RoleAdmin:
		return role, nil
	}
	return "", fmt.Errorf("invalid role: %s", raw)
}

// IsPrivileged reports whether the role may review proposals and manage sessions.
func (r Role) IsPrivileged() bool {
	return r == RoleCoordinator || r == RoleAdmin
}

type User struct {
	ID           string    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	FullName     string    `json:"full_name" bson:"full_name"`
	Role         Role      `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// Identity is the authenticated caller, resolved from a verified token once per request.
type Identity struct {
	UserID   string
	Username string
	Role     Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func (i Identity) IsPrivileged() bool {
	return i.Role.IsPrivileged()
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required"`
}

type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RoleRequest struct {
	Role string `json:"role"`
}

// AuthResult is returned by register and login; the token itself travels in a cookie.
type AuthResult struct {
	Token string `json:"-"`
	User  User   `json:"user"`
}
