package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/notify"
	"github.com/spec-kit/account-service/internal/repository"
)

// ConfirmEmailPath prefixes confirmation links.
const ConfirmEmailPath = "/account/confirm-email/"

// ConfirmResult is the outcome of resolving a confirmation key.
type ConfirmResult struct {
	Confirmation *domain.EmailConfirmation
	EmailAddress *domain.EmailAddress
	Expired      bool
	// Confirmed is false when the confirmation was a no-op.
	Confirmed bool
}

// ConfirmationService issues and redeems email confirmation keys.
type ConfirmationService struct {
	cfg  config.AccountConfig
	deps Dependencies
}

// NewConfirmationService builds the service.
func NewConfirmationService(cfg config.AccountConfig, deps Dependencies) *ConfirmationService {
	return &ConfirmationService{cfg: cfg, deps: deps.withDefaults()}
}

// ActivateURL is the link sent to the address owner.
func (s *ConfirmationService) ActivateURL(key string) string {
	return s.cfg.SiteURL + ConfirmEmailPath + key
}

// Issue creates a confirmation for addr and sends it. If sending fails the
// record is kept unsent and the error is returned.
func (s *ConfirmationService) Issue(ctx context.Context, addr *domain.EmailAddress) (*domain.EmailConfirmation, error) {
	key, err := s.deps.Tokens.Generate(addr.Email)
	if err != nil {
		return nil, fmt.Errorf("generate confirmation key: %w", err)
	}

	repos := s.deps.repos(ctx)
	conf := &domain.EmailConfirmation{
		EmailAddressID: addr.ID,
		Key:            key,
		CreatedAt:      s.deps.Now(),
	}
	if err := repos.Confirmations.Create(ctx, conf); err != nil {
		return nil, err
	}

	data := notify.ConfirmationData{
		Email:       addr.Email,
		ActivateURL: s.ActivateURL(key),
		Key:         key,
		ExpireDays:  s.cfg.EmailConfirmationExpireDays,
	}
	if user, err := repos.Users.GetByID(ctx, addr.UserID); err == nil {
		data.Username = user.Username
	}

	if err := s.deps.Notifier.SendConfirmation(ctx, addr.Email, data); err != nil {
		return conf, fmt.Errorf("send email confirmation: %w", err)
	}

	sent := s.deps.Now()
	if err := repos.Confirmations.MarkSent(ctx, conf.ID, sent); err != nil {
		return conf, err
	}
	conf.Sent = &sent

	s.deps.publish(ctx, events.Event{
		Type:    events.EventEmailConfirmationSent,
		UserID:  addr.UserID,
		Payload: events.EmailPayload{EmailAddressID: addr.ID, Email: addr.Email},
	})
	return conf, nil
}

// KeyExpired reports whether the key's window has passed at now.
func (s *ConfirmationService) KeyExpired(conf *domain.EmailConfirmation, now time.Time) bool {
	return conf.ExpiredAt(s.cfg.ConfirmationWindow(), now)
}

// Confirm verifies the address and promotes it to primary when the user has
// none. It returns nil without error when the key has expired or the
// address is already verified.
func (s *ConfirmationService) Confirm(ctx context.Context, conf *domain.EmailConfirmation) (*domain.EmailAddress, error) {
	if s.KeyExpired(conf, s.deps.Now()) {
		return nil, nil
	}

	var confirmed *domain.EmailAddress
	err := s.deps.Store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		addr, err := repos.EmailAddresses.GetByID(ctx, conf.EmailAddressID)
		if err != nil {
			return err
		}
		if addr.Verified {
			return nil
		}

		addr.Verified = true
		if err := repos.EmailAddresses.Update(ctx, addr); err != nil {
			return err
		}
		if _, err := setAsPrimary(ctx, repos, addr, true); err != nil {
			return err
		}
		confirmed = addr
		return nil
	})
	if err != nil || confirmed == nil {
		return nil, err
	}

	s.deps.publish(ctx, events.Event{
		Type:    events.EventEmailConfirmed,
		UserID:  confirmed.UserID,
		Payload: events.EmailPayload{EmailAddressID: confirmed.ID, Email: confirmed.Email},
	})
	return confirmed, nil
}

// Resolve looks a key up without changing anything. Keys are matched
// case-insensitively.
func (s *ConfirmationService) Resolve(ctx context.Context, key string) (*ConfirmResult, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	repos := s.deps.repos(ctx)

	conf, err := repos.Confirmations.GetByKey(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrConfirmationNotFound
	}
	if err != nil {
		return nil, err
	}

	addr, err := repos.EmailAddresses.GetByID(ctx, conf.EmailAddressID)
	if err != nil {
		return nil, err
	}

	return &ConfirmResult{
		Confirmation: conf,
		EmailAddress: addr,
		Expired:      s.KeyExpired(conf, s.deps.Now()),
	}, nil
}

// ResolveAndConfirm confirms the key and reactivates the owning user, unless
// that user has asked for their account to be deleted.
func (s *ConfirmationService) ResolveAndConfirm(ctx context.Context, key string) (*ConfirmResult, error) {
	res, err := s.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}

	addr, err := s.Confirm(ctx, res.Confirmation)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return res, nil
	}
	res.EmailAddress = addr
	res.Confirmed = true

	repos := s.deps.repos(ctx)
	if _, err := repos.Deletions.GetByUserID(ctx, addr.UserID); err == nil {
		s.deps.Logger.Info("skipping reactivation of account pending deletion", zap.String("user_id", addr.UserID))
		return res, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err := repos.Users.SetActive(ctx, addr.UserID, true); err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteExpired purges confirmations whose window has passed.
func (s *ConfirmationService) DeleteExpired(ctx context.Context) (int, error) {
	cutoff := s.deps.Now().Add(-s.cfg.ConfirmationWindow())
	n, err := s.deps.repos(ctx).Confirmations.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.deps.Metrics.RecordConfirmationsPurged(n)
	return n, nil
}
