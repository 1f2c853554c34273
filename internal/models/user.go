package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Role names
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Role is a named grant that users can hold.
type Role struct {
	Name        string
	Description string
}

// DefaultRoles are the roles every deployment starts with.
var DefaultRoles = []Role{
	{Name: RoleAdmin, Description: "Administrator"},
	{Name: RoleUser, Description: "Regular user"},
}

// User is an account that can log in to the parking portal.
// Admins and regular users share this type and differ only by Roles.
type User struct {
	UserID       uuid.UUID // UUIDv7
	Email        string    // unique
	Username     string    // unique when set
	PasswordHash string    // bcrypt
	Active       bool

	Roles []string // ["admin"], ["user"]

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasRole returns true if the user holds role.
func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// Clone returns a copy that shares no slices with u.
func (u *User) Clone() *User {
	clone := *u
	clone.Roles = slices.Clone(u.Roles)
	return &clone
}

// Profile is the public view of a user returned by the API and kept by
// clients under the "user" storage key.
type Profile struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// Profile returns the public view of u.
func (u *User) Profile() Profile {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return Profile{
		ID:       u.UserID.String(),
		Email:    u.Email,
		Username: u.Username,
		Roles:    roles,
	}
}
