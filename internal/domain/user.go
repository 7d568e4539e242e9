package domain

import "time"

// User is a console operator who signs in to the admin console.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
