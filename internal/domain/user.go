package domain

import "time"

// User is the identity record owned by the surrounding application. The
// account core only touches the active flag, the email mirror and the
// password hash.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Active       bool
	Staff        bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasUsablePassword reports whether the user can log in with a password.
func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != ""
}
