package service

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
)

const expiryCacheSize = 4096

type expiryOverride struct {
	seconds int
	set     bool
}

// PasswordPolicy decides when passwords expire and keeps the history the
// decision is based on. Per-user overrides are cached for a short TTL; a
// change made by another process is seen once the entry lapses.
type PasswordPolicy struct {
	cfg   config.AccountConfig
	deps  Dependencies
	cache *expirable.LRU[string, expiryOverride]
}

// NewPasswordPolicy builds the policy.
func NewPasswordPolicy(cfg config.AccountConfig, deps Dependencies) *PasswordPolicy {
	p := &PasswordPolicy{cfg: cfg, deps: deps.withDefaults()}
	if cfg.PasswordExpiryCacheTTLSec > 0 {
		ttl := time.Duration(cfg.PasswordExpiryCacheTTLSec) * time.Second
		p.cache = expirable.NewLRU[string, expiryOverride](expiryCacheSize, nil, ttl)
	}
	return p
}

// IsExpired reports whether the user must change their password.
func (p *PasswordPolicy) IsExpired(ctx context.Context, userID string) (bool, error) {
	if !p.cfg.PasswordUseHistory {
		return false, nil
	}

	seconds := p.cfg.PasswordExpirySeconds
	override, err := p.override(ctx, userID)
	if err != nil {
		return false, err
	}
	if override.set {
		seconds = override.seconds
	}
	if seconds == 0 {
		return false, nil
	}

	latest, err := p.deps.repos(ctx).Passwords.LatestHistory(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return latest.Timestamp.Add(time.Duration(seconds) * time.Second).Before(p.deps.Now()), nil
}

func (p *PasswordPolicy) override(ctx context.Context, userID string) (expiryOverride, error) {
	if p.cache != nil {
		if v, ok := p.cache.Get(userID); ok {
			return v, nil
		}
	}

	var v expiryOverride
	expiry, err := p.deps.repos(ctx).Passwords.GetExpiry(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return v, err
	default:
		v = expiryOverride{seconds: expiry.Expiry, set: true}
	}

	if p.cache != nil {
		p.cache.Add(userID, v)
	}
	return v, nil
}

// SetExpiry stores a per-user override. Zero means the password never expires.
func (p *PasswordPolicy) SetExpiry(ctx context.Context, userID string, seconds int) error {
	if seconds < 0 {
		seconds = 0
	}
	err := p.deps.repos(ctx).Passwords.UpsertExpiry(ctx, &domain.PasswordExpiry{UserID: userID, Expiry: seconds})
	if p.cache != nil {
		p.cache.Remove(userID)
	}
	return err
}

// RecordChange appends hash to the user's history when history is enabled.
func (p *PasswordPolicy) RecordChange(ctx context.Context, userID, hash string) error {
	if !p.cfg.PasswordUseHistory {
		return nil
	}
	return p.deps.repos(ctx).Passwords.AddHistory(ctx, &domain.PasswordHistory{
		UserID:    userID,
		Password:  hash,
		Timestamp: p.deps.Now(),
	})
}

// Backfill writes a history entry dated age ago for users without history,
// or for every user when force is set. It returns the number of entries.
func (p *PasswordPolicy) Backfill(ctx context.Context, age time.Duration, force bool) (int, error) {
	repos := p.deps.repos(ctx)

	var (
		users []*domain.User
		err   error
	)
	if force {
		users, err = repos.Users.List(ctx)
	} else {
		users, err = repos.Users.ListWithoutPasswordHistory(ctx)
	}
	if err != nil {
		return 0, err
	}

	stamp := p.deps.Now().Add(-age)
	for i, u := range users {
		entry := &domain.PasswordHistory{UserID: u.ID, Password: u.PasswordHash, Timestamp: stamp}
		if err := repos.Passwords.AddHistory(ctx, entry); err != nil {
			return i, err
		}
	}
	return len(users), nil
}
