package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

// SignupParams carries the fields submitted at registration.
type SignupParams struct {
	Username string
	Email    string
	Password string
	Code     string
	Timezone string
	Language string
}

// SignupResult is what registration produced.
type SignupResult struct {
	User         *domain.User
	EmailAddress *domain.EmailAddress
	Account      *domain.Account
	SignupCode   *domain.SignupCode
}

// SignupService creates users and binds them to their signup code, primary
// email address and account preferences.
type SignupService struct {
	cfg           config.AccountConfig
	bcryptCost    int
	deps          Dependencies
	codes         *SignupCodeService
	emails        *EmailAddressService
	confirmations *ConfirmationService
	policy        *PasswordPolicy
}

// SignupDependencies are the services registration builds on.
type SignupDependencies struct {
	Codes         *SignupCodeService
	Emails        *EmailAddressService
	Confirmations *ConfirmationService
	Policy        *PasswordPolicy
}

// NewSignupService builds the service.
func NewSignupService(cfg config.Config, deps Dependencies, svc SignupDependencies) *SignupService {
	return &SignupService{
		cfg:           cfg.Account,
		bcryptCost:    cfg.Auth.BcryptCost,
		deps:          deps.withDefaults(),
		codes:         svc.Codes,
		emails:        svc.Emails,
		confirmations: svc.Confirmations,
		policy:        svc.Policy,
	}
}

// IsCodeValid checks a signup code without redeeming it.
func (s *SignupService) IsCodeValid(ctx context.Context, code string) (*domain.SignupCode, error) {
	return s.codes.CheckCode(ctx, code)
}

// CreateUserAndBind registers a user. With open signup off a valid code is
// required; a supplied code must always be valid. The user, code usage,
// primary address and account are written in one transaction. The
// confirmation email is sent after commit and a send failure does not undo
// the signup.
func (s *SignupService) CreateUserAndBind(ctx context.Context, p SignupParams) (*SignupResult, error) {
	p.Email = normalizeEmail(p.Email)
	p.Code = strings.TrimSpace(p.Code)

	if p.Code == "" && !s.cfg.OpenSignup {
		return nil, domain.ErrSignupClosed
	}
	if p.Code != "" {
		if _, err := s.codes.CheckCode(ctx, p.Code); err != nil {
			return nil, err
		}
	}

	tz, lang, err := validatePreferences(s.cfg, p.Timezone, p.Language)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(p.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	res := &SignupResult{}
	err = s.deps.Store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user := &domain.User{
			Username:     p.Username,
			Email:        p.Email,
			PasswordHash: hash,
			Active:       true,
		}
		if err := repos.Users.Create(ctx, user); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				return apperrors.NewConflict("username is already taken", map[string]any{"field": "username"})
			}
			return err
		}
		res.User = user

		verified := false
		if p.Code != "" {
			code, err := s.codes.Redeem(ctx, p.Code, user.ID)
			if err != nil {
				return err
			}
			res.SignupCode = code
			verified = code.Email != "" && domain.SameEmail(code.Email, p.Email)
		}

		addr, err := s.emails.Add(ctx, user.ID, p.Email, AddEmailOptions{Primary: true, Verified: verified})
		if err != nil {
			return err
		}
		res.EmailAddress = addr

		if s.cfg.EmailConfirmationRequired && !addr.Verified {
			if err := repos.Users.SetActive(ctx, user.ID, false); err != nil {
				return err
			}
			user.Active = false
		}

		account := &domain.Account{UserID: user.ID, Timezone: tz, Language: lang}
		if err := repos.Accounts.Create(ctx, account); err != nil {
			return err
		}
		res.Account = account

		return s.policy.RecordChange(ctx, user.ID, hash)
	})
	if err != nil {
		return nil, err
	}

	if s.cfg.EmailConfirmationEmail && !res.EmailAddress.Verified {
		if _, err := s.confirmations.Issue(ctx, res.EmailAddress); err != nil {
			s.deps.Logger.Warn("signup confirmation email failed", zap.String("user_id", res.User.ID), zap.Error(err))
		}
	}

	if res.SignupCode != nil {
		s.codes.publishUsed(ctx, res.SignupCode, res.User.ID)
	}
	s.deps.publish(ctx, events.Event{
		Type:   events.EventUserSignedUp,
		UserID: res.User.ID,
		Payload: events.UserSignedUpPayload{
			Username:   res.User.Username,
			Email:      res.EmailAddress.Email,
			SignupCode: codeID(res.SignupCode),
			Verified:   res.EmailAddress.Verified,
		},
	})
	return res, nil
}

func validatePreferences(cfg config.AccountConfig, tz, lang string) (string, string, error) {
	if tz == "" {
		tz = cfg.DefaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return "", "", domain.ErrInvalidTimezone
	}
	if lang == "" {
		lang = cfg.DefaultLanguage
	}
	if !cfg.SupportsLanguage(lang) {
		return "", "", domain.ErrInvalidLanguage
	}
	return tz, lang, nil
}

func codeID(sc *domain.SignupCode) string {
	if sc == nil {
		return ""
	}
	return sc.ID
}
