package domain

import "time"

// Role controls what a user may do beyond their own issues.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a citizen or city official account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Avatar       string
	Role         Role
	Points       int
	Badges       []string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user acts as a city official.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserProfile is the public projection of a user attached to issues.
type UserProfile struct {
	ID     string
	Name   string
	Avatar string
	Email  string
}
