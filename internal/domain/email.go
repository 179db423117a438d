package domain

import (
	"strings"
	"time"
)

// EmailAddress belongs to exactly one user. At most one address per user is
// primary.
type EmailAddress struct {
	ID       string
	UserID   string
	Email    string
	Verified bool
	Primary  bool
}

// SameEmail compares two addresses case-insensitively.
func SameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// EmailConfirmation holds a key proving control of an address. Records are
// kept after confirmation as an audit trail.
type EmailConfirmation struct {
	ID             string
	EmailAddressID string
	Key            string
	CreatedAt      time.Time
	Sent           *time.Time
}

// ExpiredAt reports whether the key is past its window at now. A
// confirmation that was never sent has no window and counts as expired.
func (c *EmailConfirmation) ExpiredAt(window time.Duration, now time.Time) bool {
	if c.Sent == nil {
		return true
	}
	return c.Sent.Add(window).Before(now)
}
