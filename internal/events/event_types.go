package events

import (
	"time"

	"github.com/spec-kit/console-access/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRolePermissionsSynced EventType = "role_permissions_synced"
	EventUserRolesSynced       EventType = "user_roles_synced"
	EventSignedIn              EventType = "signed_in"
	EventSignedOut             EventType = "signed_out"
)

// Actor identifies the console session that caused an event.
type Actor struct {
	UserID    string        `json:"user_id,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	Role      domain.RoleID `json:"role,omitempty"`
}

// Event represents a domain event emitted by services. Subject is the id of
// the role or user the event is about.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RolePermissionsSyncedPayload payload.
type RolePermissionsSyncedPayload struct {
	Previous []string `json:"previous"`
	Current  []string `json:"current"`
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
}

// UserRolesSyncedPayload payload.
type UserRolesSyncedPayload struct {
	Previous []domain.RoleID `json:"previous"`
	Current  []domain.RoleID `json:"current"`
	Added    []domain.RoleID `json:"added"`
	Removed  []domain.RoleID `json:"removed"`
}

// SignedInPayload payload.
type SignedInPayload struct {
	Role      domain.RoleID `json:"role"`
	ExpiresAt time.Time     `json:"expires_at"`
	Patterns  int           `json:"patterns"`
}
