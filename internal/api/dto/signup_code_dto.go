package dto

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// SignupCodeCreateRequest is used by staff to issue invitations.
type SignupCodeCreateRequest struct {
	Email       string         `json:"email"`
	Code        string         `json:"code"`
	MaxUses     int            `json:"max_uses"`
	ExpiryHours int            `json:"expiry_hours"`
	Notes       string         `json:"notes"`
	Send        bool           `json:"send"`
	Recipients  []string       `json:"recipients"`
	Extra       map[string]any `json:"extra"`
}

func (r SignupCodeCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Code, validation.Length(0, 64)),
		validation.Field(&r.MaxUses, validation.Min(0)),
		validation.Field(&r.ExpiryHours, validation.Min(0)),
		validation.Field(&r.Recipients, validation.By(func(any) error {
			for _, addr := range r.Recipients {
				if err := is.Email.Validate(addr); err != nil {
					return err
				}
			}
			return nil
		})),
		validation.Field(&r.Send, validation.By(func(any) error {
			if r.Send && r.Email == "" && len(r.Recipients) == 0 {
				return errors.New("an email or recipients are required to send")
			}
			return nil
		})),
	)
}

// SignupCodeResponse is the staff view of a code.
type SignupCodeResponse struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	Email     string     `json:"email,omitempty"`
	MaxUses   int        `json:"max_uses"`
	UseCount  int        `json:"use_count"`
	Expiry    *time.Time `json:"expiry,omitempty"`
	Sent      *time.Time `json:"sent,omitempty"`
	SignupURL string     `json:"signup_url"`
}
