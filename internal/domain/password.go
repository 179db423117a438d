package domain

import "time"

// PasswordHistory is an append-only snapshot taken on every password change.
type PasswordHistory struct {
	ID        string
	UserID    string
	Password  string
	Timestamp time.Time
}

// PasswordExpiry overrides the global expiry for one user. Zero seconds means
// the password never expires.
type PasswordExpiry struct {
	ID     string
	UserID string
	Expiry int
}

// Duration returns the expiry window.
func (p *PasswordExpiry) Duration() time.Duration {
	return time.Duration(p.Expiry) * time.Second
}
