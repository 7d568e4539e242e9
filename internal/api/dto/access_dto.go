package dto

import "github.com/spec-kit/console-access/internal/access"

// CheckResponse is the guard decision for a console path.
type CheckResponse struct {
	Path     string         `json:"path"`
	Outcome  access.Outcome `json:"outcome"`
	Redirect string         `json:"redirect,omitempty"`
	Reason   access.Reason  `json:"reason"`
	Pattern  string         `json:"pattern,omitempty"`
	// Public marks the sign-in and forbidden views, which render without a session.
	Public bool `json:"public,omitempty"`
}
