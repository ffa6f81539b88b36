package domain

import "time"

// User represents a registered account. Sessions may also be anonymous.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
