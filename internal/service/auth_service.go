package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/notify"
	"github.com/spec-kit/account-service/internal/repository"
)

// PasswordResetConfirmPath is linked from reset emails.
const PasswordResetConfirmPath = "/account/password/reset/confirm"

// LoginResult is returned by a successful login.
type LoginResult struct {
	User            *domain.User
	Token           string
	ExpiresAt       time.Time
	PasswordExpired bool
}

// AuthService coordinates login and password flows.
type AuthService struct {
	cfg        config.AccountConfig
	deps       Dependencies
	tokenMgr   *auth.TokenManager
	resets     repository.PasswordResetRepository
	emails     *EmailAddressService
	policy     *PasswordPolicy
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates collaborator requirements for auth service.
type AuthDependencies struct {
	TokenManager      *auth.TokenManager
	PasswordResetRepo repository.PasswordResetRepository
	Emails            *EmailAddressService
	Policy            *PasswordPolicy
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps Dependencies, svc AuthDependencies) *AuthService {
	tm := svc.TokenManager
	if tm == nil {
		tm = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	}
	return &AuthService{
		cfg:        cfg.Account,
		deps:       deps.withDefaults(),
		tokenMgr:   tm,
		resets:     svc.PasswordResetRepo,
		emails:     svc.Emails,
		policy:     svc.Policy,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   cfg.Auth.PasswordResetTTL(),
	}
}

// Login authenticates by username or email address.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	user, err := s.lookup(ctx, strings.TrimSpace(identifier))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, domain.ErrInactiveUser
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, domain.RoleFor(user))
	if err != nil {
		return nil, err
	}

	expired := false
	if !user.Staff {
		if expired, err = s.policy.IsExpired(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	s.deps.publish(ctx, events.Event{Type: events.EventUserLoggedIn, UserID: user.ID})
	return &LoginResult{User: user, Token: token, ExpiresAt: exp, PasswordExpired: expired}, nil
}

func (s *AuthService) lookup(ctx context.Context, identifier string) (*domain.User, error) {
	users := s.deps.repos(ctx).Users
	user, err := users.GetByUsername(ctx, identifier)
	if err == nil || !errors.Is(err, domain.ErrNotFound) || !strings.Contains(identifier, "@") {
		return user, err
	}
	return users.GetByEmail(ctx, identifier)
}

// Logout currently no-ops for stateless JWT approach.
func (s *AuthService) Logout(_ context.Context, _ string) error {
	return nil
}

// ChangePassword replaces the user's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.deps.repos(ctx).Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.HasUsablePassword() {
		if err := auth.ComparePassword(user.PasswordHash, current); err != nil {
			return domain.ErrInvalidCredentials
		}
	}
	return s.setPassword(ctx, user, next)
}

func (s *AuthService) setPassword(ctx context.Context, user *domain.User, password string) error {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}

	err = s.deps.Store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Users.SetPassword(ctx, user.ID, hash); err != nil {
			return err
		}
		return s.policy.RecordChange(ctx, user.ID, hash)
	})
	if err != nil {
		return err
	}
	user.PasswordHash = hash

	if s.cfg.NotifyOnPasswordChange {
		s.notifyChange(ctx, user)
	}
	s.deps.publish(ctx, events.Event{Type: events.EventPasswordChanged, UserID: user.ID})
	return nil
}

func (s *AuthService) notifyChange(ctx context.Context, user *domain.User) {
	to := user.Email
	if primary, err := s.emails.GetPrimary(ctx, user.ID); err == nil && primary != nil {
		to = primary.Email
	}
	if to == "" {
		return
	}
	data := notify.PasswordChangeData{Username: user.Username, ChangedAt: s.deps.Now().Format(time.RFC1123)}
	if err := s.deps.Notifier.SendPasswordChange(ctx, to, data); err != nil {
		s.deps.Logger.Warn("password change notice failed", zap.String("user_id", user.ID), zap.Error(err))
	}
}

// RequestPasswordReset mails a reset link to every user with a verified
// address equal to email. Unknown addresses are silently ignored.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	users, err := s.emails.UsersFor(ctx, email)
	if err != nil {
		return err
	}

	for _, user := range users {
		tok, err := s.deps.Tokens.Generate(user.ID)
		if err != nil {
			return fmt.Errorf("generate reset token: %w", err)
		}
		if err := s.resets.Store(ctx, tok, user.ID, s.resetTTL); err != nil {
			return err
		}
		data := notify.PasswordResetData{
			Username: user.Username,
			ResetURL: s.cfg.SiteURL + PasswordResetConfirmPath + "?token=" + url.QueryEscape(tok),
		}
		if err := s.deps.Notifier.SendPasswordReset(ctx, email, data); err != nil {
			s.deps.Logger.Warn("password reset email failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return nil
}

// ConfirmPasswordReset sets a new password using a reset token. The token is
// single use.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tok, password string) error {
	userID, err := s.resets.Get(ctx, tok)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidResetToken
	}
	if err != nil {
		return err
	}

	user, err := s.deps.repos(ctx).Users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidResetToken
	}
	if err != nil {
		return err
	}

	if err := s.resets.Delete(ctx, tok); err != nil {
		return err
	}
	return s.setPassword(ctx, user, password)
}
