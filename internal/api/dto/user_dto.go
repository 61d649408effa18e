package dto

import (
	"strings"
	"time"

	"github.com/spec-kit/civic-reporter/internal/domain"
)

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Normalize trims free-text fields before validation.
func (r *UserRegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Normalize trims the email before validation.
func (r *UserLoginRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// UserResponse is the caller's own account view.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Avatar    string      `json:"avatar,omitempty"`
	Role      domain.Role `json:"role"`
	Points    int         `json:"points"`
	Badges    []string    `json:"badges"`
	CreatedAt time.Time   `json:"createdAt"`
}

// PublicUserResponse omits contact details.
type PublicUserResponse struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Avatar string   `json:"avatar,omitempty"`
	Points int      `json:"points"`
	Badges []string `json:"badges"`
}

// NewUserResponse maps a user to its private view.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Avatar:    user.Avatar,
		Role:      user.Role,
		Points:    user.Points,
		Badges:    nonNilStrings(user.Badges),
		CreatedAt: user.CreatedAt,
	}
}

// NewPublicUserResponse maps a user to its public view.
func NewPublicUserResponse(user domain.User) PublicUserResponse {
	return PublicUserResponse{
		ID:     user.ID,
		Name:   user.Name,
		Avatar: user.Avatar,
		Points: user.Points,
		Badges: nonNilStrings(user.Badges),
	}
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
