package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/notify"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

// SignupPath is the public signup route; invitations link to it.
const SignupPath = "/account/signup"

// CreateSignupCodeParams describes a new signup code. Zero values pick
// the defaults: a generated code, unlimited uses, the configured expiry and
// an existence check.
type CreateSignupCodeParams struct {
	Email           string
	Code            string
	MaxUses         int
	ExpiryHours     int
	InviterID       *string
	Notes           string
	SkipExistsCheck bool
}

// SignupCodeService is the signup code registry.
type SignupCodeService struct {
	cfg  config.AccountConfig
	deps Dependencies
}

// NewSignupCodeService builds the service.
func NewSignupCodeService(cfg config.AccountConfig, deps Dependencies) *SignupCodeService {
	return &SignupCodeService{cfg: cfg, deps: deps.withDefaults()}
}

// Exists reports whether a code matches either the code string or the email.
// Empty criteria are ignored; with both empty nothing matches.
func (s *SignupCodeService) Exists(ctx context.Context, code, email string) (bool, error) {
	email = normalizeEmail(email)
	if code == "" && email == "" {
		return false, nil
	}
	return s.deps.repos(ctx).SignupCodes.Exists(ctx, code, email)
}

// Create persists a new signup code.
func (s *SignupCodeService) Create(ctx context.Context, p CreateSignupCodeParams) (*domain.SignupCode, error) {
	email := normalizeEmail(p.Email)
	if p.MaxUses < 0 {
		return nil, apperrors.NewValidationError("max_uses must not be negative", map[string]any{"max_uses": p.MaxUses})
	}

	if !p.SkipExistsCheck {
		exists, err := s.Exists(ctx, p.Code, email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.ErrAlreadyExists
		}
	}

	code := p.Code
	if code == "" {
		generated, err := s.deps.Tokens.Generate(email)
		if err != nil {
			return nil, fmt.Errorf("generate signup code: %w", err)
		}
		code = generated
	}

	hours := p.ExpiryHours
	if hours <= 0 {
		hours = s.cfg.SignupCodeExpiryHours
	}
	expiry := s.deps.Now().Add(time.Duration(hours) * time.Hour)

	sc := &domain.SignupCode{
		Code:      code,
		MaxUses:   p.MaxUses,
		Expiry:    &expiry,
		Email:     email,
		InviterID: p.InviterID,
		Notes:     p.Notes,
	}
	if err := s.deps.repos(ctx).SignupCodes.Create(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// CheckCode returns the code when it can still be redeemed. Every rejection
// matches domain.ErrInvalidCode; the concrete reason is only logged.
func (s *SignupCodeService) CheckCode(ctx context.Context, code string) (*domain.SignupCode, error) {
	sc, err := s.deps.repos(ctx).SignupCodes.GetByCode(ctx, code)
	return s.validate(code, sc, err)
}

func (s *SignupCodeService) validate(code string, sc *domain.SignupCode, err error) (*domain.SignupCode, error) {
	if errors.Is(err, domain.ErrNotFound) {
		return nil, s.reject(code, domain.CodeNotFound)
	}
	if err != nil {
		return nil, err
	}
	if sc.Exhausted() {
		return nil, s.reject(code, domain.CodeExhausted)
	}
	if sc.ExpiredAt(s.deps.Now()) {
		return nil, s.reject(code, domain.CodeExpired)
	}
	return sc, nil
}

// reject builds the rejection error. Rejections reaching a client are counted
// by the HTTP error middleware.
func (s *SignupCodeService) reject(code string, reason domain.InvalidCodeReason) error {
	s.deps.Logger.Debug("signup code rejected", zap.String("reason", string(reason)))
	return &domain.InvalidCodeError{Code: code, Reason: reason}
}

// Use records a redemption by userID and recomputes the use count from the
// usage records. It performs no validity check and is not idempotent.
func (s *SignupCodeService) Use(ctx context.Context, sc *domain.SignupCode, userID string) error {
	err := s.deps.Store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return s.use(ctx, repos, sc, userID)
	})
	if err != nil {
		return err
	}
	s.publishUsed(ctx, sc, userID)
	return nil
}

// Redeem locks the code, re-checks it and records the usage in one
// transaction, so a single-use code cannot be spent twice concurrently.
// Inside a caller's transaction the usage event is left to the caller.
func (s *SignupCodeService) Redeem(ctx context.Context, code, userID string) (*domain.SignupCode, error) {
	_, nested := repository.TxFromContext(ctx)
	var redeemed *domain.SignupCode
	err := s.deps.Store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		sc, err := repos.SignupCodes.GetByCodeForUpdate(ctx, code)
		if sc, err = s.validate(code, sc, err); err != nil {
			return err
		}
		if err := s.use(ctx, repos, sc, userID); err != nil {
			return err
		}
		redeemed = sc
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !nested {
		s.publishUsed(ctx, redeemed, userID)
	}
	return redeemed, nil
}

func (s *SignupCodeService) use(ctx context.Context, repos repository.Repositories, sc *domain.SignupCode, userID string) error {
	usage := &domain.SignupCodeUsage{
		SignupCodeID: sc.ID,
		UserID:       userID,
		Timestamp:    s.deps.Now(),
	}
	if err := repos.SignupCodes.AddUsage(ctx, usage); err != nil {
		return fmt.Errorf("record signup code usage: %w", err)
	}
	count, err := repos.SignupCodes.RecalculateUseCount(ctx, sc.ID)
	if err != nil {
		return fmt.Errorf("recount signup code usage: %w", err)
	}
	sc.UseCount = count
	return nil
}

func (s *SignupCodeService) publishUsed(ctx context.Context, sc *domain.SignupCode, userID string) {
	s.deps.publish(ctx, events.Event{
		Type:    events.EventSignupCodeUsed,
		UserID:  userID,
		Payload: events.SignupCodePayload{CodeID: sc.ID, Email: sc.Email, UseCount: sc.UseCount},
	})
}

// SignupURL is the link an invitee follows to redeem code.
func (s *SignupCodeService) SignupURL(code string) string {
	return s.cfg.SiteURL + SignupPath + "?code=" + url.QueryEscape(code)
}

// Send delivers the invitation and stamps the code as sent. Recipients
// default to the code's email. extra is passed through to the template.
func (s *SignupCodeService) Send(ctx context.Context, sc *domain.SignupCode, recipients []string, extra map[string]any) error {
	if len(recipients) == 0 && sc.Email != "" {
		recipients = []string{sc.Email}
	}
	if len(recipients) == 0 {
		return apperrors.NewValidationError("signup code has no recipient", nil)
	}

	data := notify.InvitationData{
		SiteName:  siteName(s.cfg.SiteURL),
		SignupURL: s.SignupURL(sc.Code),
		Code:      sc.Code,
		Extra:     extra,
	}
	if sc.Expiry != nil {
		data.Expiry = sc.Expiry.Format(time.RFC1123)
	}
	if sc.InviterID != nil {
		if inviter, err := s.deps.repos(ctx).Users.GetByID(ctx, *sc.InviterID); err == nil {
			data.InviterName = inviter.Username
		}
	}

	if err := s.deps.Notifier.SendInvitation(ctx, recipients, data); err != nil {
		return fmt.Errorf("send signup code: %w", err)
	}

	sent := s.deps.Now()
	if err := s.deps.repos(ctx).SignupCodes.MarkSent(ctx, sc.ID, sent); err != nil {
		return err
	}
	sc.Sent = &sent

	s.deps.publish(ctx, events.Event{
		Type:    events.EventSignupCodeSent,
		Payload: events.SignupCodePayload{CodeID: sc.ID, Email: strings.Join(recipients, ","), UseCount: sc.UseCount},
	})
	return nil
}
