package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/repository"
)

// AddEmailOptions controls how a new address is registered.
type AddEmailOptions struct {
	Primary  bool
	Verified bool
	// Confirm issues a confirmation when the address is not verified.
	Confirm bool
}

// EmailAddressService manages the addresses attached to users.
type EmailAddressService struct {
	cfg           config.AccountConfig
	deps          Dependencies
	confirmations *ConfirmationService
}

// NewEmailAddressService builds the service.
func NewEmailAddressService(cfg config.AccountConfig, deps Dependencies, confirmations *ConfirmationService) *EmailAddressService {
	return &EmailAddressService{cfg: cfg, deps: deps.withDefaults(), confirmations: confirmations}
}

// Add registers email for the user. Adding an address the user already has
// returns the existing record unchanged.
func (s *EmailAddressService) Add(ctx context.Context, userID, email string, opts AddEmailOptions) (*domain.EmailAddress, error) {
	email = normalizeEmail(email)
	var (
		addr    *domain.EmailAddress
		created bool
	)

	err := s.deps.Store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		existing, err := repos.EmailAddresses.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		for _, a := range existing {
			if domain.SameEmail(a.Email, email) {
				addr = a
				return nil
			}
		}

		if err := s.ensureAvailable(ctx, repos, email, ""); err != nil {
			return err
		}

		addr = &domain.EmailAddress{UserID: userID, Email: email, Verified: opts.Verified}
		if err := repos.EmailAddresses.Create(ctx, addr); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				return domain.ErrEmailTaken
			}
			return err
		}
		created = true

		if opts.Primary {
			if _, err := setAsPrimary(ctx, repos, addr, false); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created && opts.Confirm && !addr.Verified {
		if _, err := s.confirmations.Issue(ctx, addr); err != nil {
			return addr, err
		}
	}
	return addr, nil
}

func (s *EmailAddressService) ensureAvailable(ctx context.Context, repos repository.Repositories, email, excludeID string) error {
	if !s.cfg.EmailUnique {
		return nil
	}
	inUse, err := repos.EmailAddresses.EmailInUse(ctx, email, excludeID)
	if err != nil {
		return err
	}
	if inUse {
		return domain.ErrEmailTaken
	}
	return nil
}

// GetPrimary returns the user's primary address, or nil when there is none.
func (s *EmailAddressService) GetPrimary(ctx context.Context, userID string) (*domain.EmailAddress, error) {
	addr, err := s.deps.repos(ctx).EmailAddresses.GetPrimary(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return addr, err
}

// List returns every address of the user, primary first.
func (s *EmailAddressService) List(ctx context.Context, userID string) ([]*domain.EmailAddress, error) {
	return s.deps.repos(ctx).EmailAddresses.ListByUser(ctx, userID)
}

// SetAsPrimary promotes addr and mirrors it onto the user record. With
// conditional set it does nothing and returns false when the user already
// has a primary address.
func (s *EmailAddressService) SetAsPrimary(ctx context.Context, addr *domain.EmailAddress, conditional bool) (bool, error) {
	var promoted bool
	err := s.deps.Store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) (err error) {
		promoted, err = setAsPrimary(ctx, repos, addr, conditional)
		return err
	})
	return promoted, err
}

// setAsPrimary runs inside the caller's transaction.
func setAsPrimary(ctx context.Context, repos repository.Repositories, addr *domain.EmailAddress, conditional bool) (bool, error) {
	old, err := repos.EmailAddresses.GetPrimary(ctx, addr.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	if old != nil {
		if conditional {
			return false, nil
		}
		if old.ID != addr.ID {
			if err := repos.EmailAddresses.ClearPrimary(ctx, addr.UserID); err != nil {
				return false, err
			}
		}
	}

	addr.Primary = true
	if err := repos.EmailAddresses.Update(ctx, addr); err != nil {
		return false, fmt.Errorf("promote email address: %w", err)
	}

	user, err := repos.Users.GetByID(ctx, addr.UserID)
	if err != nil {
		return false, err
	}
	user.Email = addr.Email
	if err := repos.Users.Update(ctx, user); err != nil {
		return false, fmt.Errorf("mirror primary email: %w", err)
	}
	return true, nil
}

// Change replaces the address and the user's email in one transaction and
// resets verification. The confirmation is sent after commit.
func (s *EmailAddressService) Change(ctx context.Context, addr *domain.EmailAddress, newEmail string, confirm bool) error {
	newEmail = normalizeEmail(newEmail)
	err := s.deps.Store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := s.ensureAvailable(ctx, repos, newEmail, addr.ID); err != nil {
			return err
		}

		user, err := repos.Users.GetByID(ctx, addr.UserID)
		if err != nil {
			return err
		}
		user.Email = newEmail
		if err := repos.Users.Update(ctx, user); err != nil {
			return err
		}

		updated := *addr
		updated.Email = newEmail
		updated.Verified = false
		if err := repos.EmailAddresses.Update(ctx, &updated); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				return domain.ErrEmailTaken
			}
			return err
		}
		*addr = updated
		return nil
	})
	if err != nil {
		return err
	}

	if confirm {
		if _, err := s.confirmations.Issue(ctx, addr); err != nil {
			return err
		}
	}
	return nil
}

// UsersFor returns the users owning a verified address equal to email.
func (s *EmailAddressService) UsersFor(ctx context.Context, email string) ([]*domain.User, error) {
	repos := s.deps.repos(ctx)
	addrs, err := repos.EmailAddresses.ListVerifiedByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(addrs))
	seen := map[string]struct{}{}
	for _, a := range addrs {
		if _, dup := seen[a.UserID]; dup {
			continue
		}
		seen[a.UserID] = struct{}{}
		user, err := repos.Users.GetByID(ctx, a.UserID)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}
