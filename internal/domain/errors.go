package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyExists        = errors.New("already exists")
	ErrInvalidCode          = errors.New("signup code is invalid")
	ErrEmailTaken           = errors.New("email address already in use")
	ErrConfirmationNotFound = errors.New("email confirmation not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInactiveUser         = errors.New("user is inactive")
	ErrInvalidResetToken    = errors.New("password reset token is invalid or expired")
	ErrSignupClosed         = errors.New("signup is closed")
	ErrInvalidTimezone      = errors.New("unknown timezone")
	ErrInvalidLanguage      = errors.New("unsupported language")
)

// InvalidCodeReason explains internally why a signup code was rejected.
type InvalidCodeReason string

const (
	CodeNotFound  InvalidCodeReason = "not_found"
	CodeExhausted InvalidCodeReason = "exhausted"
	CodeExpired   InvalidCodeReason = "expired"
)

// InvalidCodeError is returned by signup code checks. It matches
// ErrInvalidCode with errors.Is; the reason is for logs and metrics only.
type InvalidCodeError struct {
	Code   string
	Reason InvalidCodeReason
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("%s (%s)", ErrInvalidCode.Error(), e.Reason)
}

func (e *InvalidCodeError) Is(target error) bool {
	return target == ErrInvalidCode
}
