package domain

import "time"

// Account carries per-user presentation preferences.
type Account struct {
	ID       string
	UserID   string
	Timezone string
	Language string
}

// AccountDeletion tracks a two-phase removal. UserID becomes nil once the
// user row is purged; Email is a snapshot taken when the deletion is marked.
type AccountDeletion struct {
	ID            string
	UserID        *string
	Email         string
	DateRequested time.Time
	DateExpunged  *time.Time
}

// Expunged reports whether the purge already ran for this record.
func (d *AccountDeletion) Expunged() bool {
	return d.DateExpunged != nil
}
