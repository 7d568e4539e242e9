package domain

import "time"

// RoleID identifies a role. It is opaque: roles carry no hierarchy and no
// implied permissions beyond their explicit permission set.
type RoleID string

const (
	RoleAdmin RoleID = "admin"
	RoleUser  RoleID = "user"
)

// Role groups permissions and is assigned to users.
type Role struct {
	ID        RoleID
	Name      string
	CreatedAt time.Time
}

// Permission grants access to the console routes matched by Resource, a
// route pattern such as "/branch/view/edit/:id".
type Permission struct {
	ID        string
	Name      string
	Resource  string
	CreatedAt time.Time
}
