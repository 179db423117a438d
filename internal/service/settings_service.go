package service

import (
	"context"
	"errors"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/repository"
)

// Settings is the editable account profile.
type Settings struct {
	Account *domain.Account
	Email   string
}

// UpdateSettingsParams lists the fields to change; nil leaves a field as is.
type UpdateSettingsParams struct {
	Email    *string
	Timezone *string
	Language *string
}

// SettingsService reads and updates timezone, language and primary email.
type SettingsService struct {
	cfg    config.AccountConfig
	deps   Dependencies
	emails *EmailAddressService
}

// NewSettingsService builds the service.
func NewSettingsService(cfg config.AccountConfig, deps Dependencies, emails *EmailAddressService) *SettingsService {
	return &SettingsService{cfg: cfg, deps: deps.withDefaults(), emails: emails}
}

// Get returns the user's settings, creating default preferences on first access.
func (s *SettingsService) Get(ctx context.Context, userID string) (*Settings, error) {
	account, err := s.account(ctx, s.deps.repos(ctx), userID)
	if err != nil {
		return nil, err
	}

	email := ""
	primary, err := s.emails.GetPrimary(ctx, userID)
	if err != nil {
		return nil, err
	}
	if primary != nil {
		email = primary.Email
	} else if user, err := s.deps.repos(ctx).Users.GetByID(ctx, userID); err == nil {
		email = user.Email
	}

	return &Settings{Account: account, Email: email}, nil
}

func (s *SettingsService) account(ctx context.Context, repos repository.Repositories, userID string) (*domain.Account, error) {
	account, err := repos.Accounts.GetByUserID(ctx, userID)
	if !errors.Is(err, domain.ErrNotFound) {
		return account, err
	}
	account = &domain.Account{UserID: userID, Timezone: s.cfg.DefaultTimezone, Language: s.cfg.DefaultLanguage}
	if err := repos.Accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Update applies the requested changes. A new email replaces the primary
// address and is sent for confirmation when confirmation emails are enabled.
// A taken email fails the whole update before any preference is written.
func (s *SettingsService) Update(ctx context.Context, userID string, p UpdateSettingsParams) (*Settings, error) {
	if p.Email != nil {
		if err := s.checkEmail(ctx, userID, normalizeEmail(*p.Email)); err != nil {
			return nil, err
		}
	}

	err := s.deps.Store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		account, err := s.account(ctx, repos, userID)
		if err != nil {
			return err
		}

		tz, lang := account.Timezone, account.Language
		if p.Timezone != nil {
			tz = *p.Timezone
		}
		if p.Language != nil {
			lang = *p.Language
		}
		if tz, lang, err = validatePreferences(s.cfg, tz, lang); err != nil {
			return err
		}
		if tz == account.Timezone && lang == account.Language {
			return nil
		}
		account.Timezone, account.Language = tz, lang
		return repos.Accounts.Update(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	if p.Email != nil {
		if err := s.updateEmail(ctx, userID, normalizeEmail(*p.Email)); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, userID)
}

func (s *SettingsService) checkEmail(ctx context.Context, userID, email string) error {
	repos := s.deps.repos(ctx)
	primary, err := s.emails.GetPrimary(ctx, userID)
	if err != nil {
		return err
	}

	excludeID := ""
	switch {
	case primary != nil && email == primary.Email:
		return nil
	case primary != nil:
		excludeID = primary.ID
	default:
		owned, err := repos.EmailAddresses.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		for _, a := range owned {
			if domain.SameEmail(a.Email, email) {
				return nil
			}
		}
	}
	return s.emails.ensureAvailable(ctx, repos, email, excludeID)
}

func (s *SettingsService) updateEmail(ctx context.Context, userID, email string) error {
	confirm := s.cfg.EmailConfirmationEmail
	primary, err := s.emails.GetPrimary(ctx, userID)
	if err != nil {
		return err
	}
	if primary == nil {
		_, err := s.emails.Add(ctx, userID, email, AddEmailOptions{Primary: true, Confirm: confirm})
		return err
	}
	if email == primary.Email {
		return nil
	}
	return s.emails.Change(ctx, primary, email, confirm)
}
