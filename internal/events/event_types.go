package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserSignedUp          EventType = "user_signed_up"
	EventUserLoggedIn          EventType = "user_logged_in"
	EventSignupCodeSent        EventType = "signup_code_sent"
	EventSignupCodeUsed        EventType = "signup_code_used"
	EventEmailConfirmed        EventType = "email_confirmed"
	EventEmailConfirmationSent EventType = "email_confirmation_sent"
	EventPasswordChanged       EventType = "password_changed"
	EventPasswordExpired       EventType = "password_expired"
	EventAccountMarkedDeleted  EventType = "account_marked_deleted"
	EventAccountExpunged       EventType = "account_expunged"
)

// AllEventTypes lists every event a subscriber can observe.
var AllEventTypes = []EventType{
	EventUserSignedUp,
	EventUserLoggedIn,
	EventSignupCodeSent,
	EventSignupCodeUsed,
	EventEmailConfirmed,
	EventEmailConfirmationSent,
	EventPasswordChanged,
	EventPasswordExpired,
	EventAccountMarkedDeleted,
	EventAccountExpunged,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserSignedUpPayload payload.
type UserSignedUpPayload struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	SignupCode string `json:"signup_code,omitempty"`
	Verified   bool   `json:"verified"`
}

// SignupCodePayload is attached to signup_code_sent and signup_code_used.
type SignupCodePayload struct {
	CodeID   string `json:"code_id"`
	Email    string `json:"email,omitempty"`
	UseCount int    `json:"use_count"`
}

// EmailPayload is attached to confirmation events.
type EmailPayload struct {
	EmailAddressID string `json:"email_address_id"`
	Email          string `json:"email"`
}

// PasswordExpiredPayload payload.
type PasswordExpiredPayload struct {
	Path string `json:"path"`
}

// AccountDeletionPayload payload.
type AccountDeletionPayload struct {
	DeletionID string `json:"deletion_id"`
	Email      string `json:"email"`
}
