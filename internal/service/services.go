package service

import (
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/repository"
)

// Services is the full set of account services sharing one set of dependencies.
type Services struct {
	SignupCodes   *SignupCodeService
	Confirmations *ConfirmationService
	Emails        *EmailAddressService
	Policy        *PasswordPolicy
	Signup        *SignupService
	Auth          *AuthService
	Deletions     *DeletionService
	Settings      *SettingsService
	Audit         *AuditService
}

// NewServices builds every service. hooks may be nil.
func NewServices(cfg config.Config, deps Dependencies, tokens *auth.TokenManager, resets repository.PasswordResetRepository, hooks AccountHooks) *Services {
	deps = deps.withDefaults()
	acc := cfg.Account

	s := &Services{}
	s.SignupCodes = NewSignupCodeService(acc, deps)
	s.Confirmations = NewConfirmationService(acc, deps)
	s.Emails = NewEmailAddressService(acc, deps, s.Confirmations)
	s.Policy = NewPasswordPolicy(acc, deps)
	s.Signup = NewSignupService(cfg, deps, SignupDependencies{
		Codes:         s.SignupCodes,
		Emails:        s.Emails,
		Confirmations: s.Confirmations,
		Policy:        s.Policy,
	})
	s.Auth = NewAuthService(cfg, deps, AuthDependencies{
		TokenManager:      tokens,
		PasswordResetRepo: resets,
		Emails:            s.Emails,
		Policy:            s.Policy,
	})
	s.Deletions = NewDeletionService(acc, deps, hooks)
	s.Settings = NewSettingsService(acc, deps, s.Emails)
	s.Audit = NewAuditService(deps.Dispatcher, deps.Logger, deps.Metrics)
	return s
}
