package domain

import "time"

// Session is the authentication state a single access decision is made against.
type Session struct {
	ID            string
	UserID        string
	Authenticated bool
	Role          RoleID
	Token         string
	ExpiresAt     time.Time
	IssuedAt      time.Time
}

// Credential is the persisted form of a session. Patterns is the role's
// policy snapshot taken at sign-in; it is not refreshed for the lifetime of
// the session.
type Credential struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Role      RoleID    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	IssuedAt  time.Time `json:"issued_at"`
	Patterns  []string  `json:"patterns"`
}

// Session returns the authenticated session described by the credential.
func (c *Credential) Session() *Session {
	if c == nil {
		return nil
	}
	return &Session{
		ID:            c.SessionID,
		UserID:        c.UserID,
		Authenticated: true,
		Role:          c.Role,
		Token:         c.Token,
		ExpiresAt:     c.ExpiresAt,
		IssuedAt:      c.IssuedAt,
	}
}
