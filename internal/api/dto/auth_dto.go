package dto

import (
	"time"

	"github.com/spec-kit/console-access/internal/domain"
)

// SignInRequest payload for sign-in. Role is optional.
type SignInRequest struct {
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Role     domain.RoleID `json:"role,omitempty"`
}

// UserSummary is the public view of a user.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SignInResponse is returned on successful sign-in.
type SignInResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	SessionID string          `json:"session_id"`
	Role      domain.RoleID   `json:"role"`
	Roles     []domain.RoleID `json:"roles"`
	User      UserSummary     `json:"user"`
}

// SessionResponse describes the caller's current session.
type SessionResponse struct {
	SessionID string        `json:"session_id"`
	UserID    string        `json:"user_id"`
	Role      domain.RoleID `json:"role"`
	IssuedAt  time.Time     `json:"issued_at"`
	ExpiresAt time.Time     `json:"expires_at"`
	Patterns  []string      `json:"patterns"`
}
