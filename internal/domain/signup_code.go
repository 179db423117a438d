package domain

import "time"

// SignupCode is an invitation gating registration when open signup is off.
// UseCount is a cached value recomputed from the usage records; it is never
// incremented in place.
type SignupCode struct {
	ID        string
	Code      string
	MaxUses   int
	UseCount  int
	Expiry    *time.Time
	Email     string
	InviterID *string
	Notes     string
	Sent      *time.Time
	CreatedAt time.Time
}

// Exhausted reports whether a limited code has reached its use limit.
func (c *SignupCode) Exhausted() bool {
	return c.MaxUses > 0 && c.UseCount >= c.MaxUses
}

// ExpiredAt reports whether the code has passed its expiry at now.
func (c *SignupCode) ExpiredAt(now time.Time) bool {
	return c.Expiry != nil && now.After(*c.Expiry)
}

// SignupCodeUsage records one redemption of a signup code.
type SignupCodeUsage struct {
	ID           string
	SignupCodeID string
	UserID       string
	Timestamp    time.Time
}
