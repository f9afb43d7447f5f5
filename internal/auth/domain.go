package auth

import "time"

// User is the authentication view of an account. The users package
// owns the richer profile, this is just what login needs.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
