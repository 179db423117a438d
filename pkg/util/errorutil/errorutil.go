package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	return NewDomainError("NOT_FOUND", fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// WithCause returns a copy of the DomainError in err that unwraps to cause.
// The rendered response is unchanged.
func WithCause(err, cause error) error {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return err
	}
	wrapped := *domainErr
	wrapped.Err = cause
	return &wrapped
}

// ToDomainError converts account-core errors into their HTTP rendering.
// Signup code rejections deliberately collapse to one message so callers
// cannot probe which codes exist.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		details := make(map[string]any, len(fields))
		for name, ferr := range fields {
			details[name] = ferr.Error()
		}
		return NewDomainError("VALIDATION_FAILED", "request validation failed", http.StatusBadRequest, details)
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := strings.ToUpper(strings.ReplaceAll(http.StatusText(fiberErr.Code), " ", "_"))
		if code == "" {
			code = "HTTP_ERROR"
		}
		return NewDomainError(code, fiberErr.Message, fiberErr.Code, nil)
	}
	switch {
	case errors.Is(err, domain.ErrInvalidCode):
		return NewDomainError("INVALID_SIGNUP_CODE", "The signup code was not valid.", http.StatusBadRequest, nil)
	case errors.Is(err, domain.ErrEmailTaken):
		return NewDomainError("EMAIL_TAKEN", "A user is registered with this email address.", http.StatusConflict, nil)
	case errors.Is(err, domain.ErrConfirmationNotFound):
		return NewDomainError("CONFIRMATION_NOT_FOUND", "Email confirmation not found.", http.StatusNotFound, nil)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return NewDomainError("INVALID_CREDENTIALS", "The username and/or password you specified are not correct.", http.StatusUnauthorized, nil)
	case errors.Is(err, domain.ErrInactiveUser):
		return NewDomainError("INACTIVE_USER", "This account is inactive.", http.StatusForbidden, nil)
	case errors.Is(err, domain.ErrInvalidResetToken):
		return NewDomainError("INVALID_RESET_TOKEN", "The password reset token is invalid or has expired.", http.StatusBadRequest, nil)
	case errors.Is(err, domain.ErrSignupClosed):
		return NewDomainError("SIGNUP_CLOSED", "Signup is currently closed.", http.StatusForbidden, nil)
	case errors.Is(err, domain.ErrInvalidTimezone), errors.Is(err, domain.ErrInvalidLanguage):
		return NewDomainError("VALIDATION_FAILED", err.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, domain.ErrAlreadyExists):
		return NewDomainError("CONFLICT", "resource already exists", http.StatusConflict, nil)
	case errors.Is(err, domain.ErrNotFound):
		return NewDomainError("NOT_FOUND", "resource not found", http.StatusNotFound, nil)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}
