package domain

import "time"

// User is the single account this instance serves. Created once through
// first-time setup.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}
