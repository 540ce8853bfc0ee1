package users

import "time"

// User is a canonical account. OAuth-created users carry no password hash;
// the column survives only for accounts that predate OAuth login.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
