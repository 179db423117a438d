package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/observability"
)

// LogoutPath is exempt from the password expiry redirect.
const LogoutPath = "/account/logout"

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Account        *handlers.AccountHandler
	SignupCodes    *handlers.SignupCodesHandler
	AuthMiddleware *auth.AuthMiddleware
	PasswordExpiry *auth.PasswordExpiryMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	account := app.Group("/account")
	account.Get("/signup/codes/:code", cfg.Account.CheckCode)
	account.Post("/signup", cfg.Account.Signup)
	account.Post("/login", cfg.Account.Login)
	account.Get("/confirm-email/:key", cfg.Account.PreviewConfirmation)
	account.Post("/confirm-email/:key", cfg.Account.ConfirmEmail)
	account.Post("/password/reset", cfg.Account.RequestPasswordReset)
	account.Post("/password/reset/confirm", cfg.Account.ConfirmPasswordReset)

	secured := func(h ...fiber.Handler) []fiber.Handler {
		chain := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAnyRole()}
		if cfg.PasswordExpiry != nil {
			chain = append(chain, cfg.PasswordExpiry.Handle)
		}
		return append(chain, h...)
	}

	account.Post("/logout", secured(cfg.Account.Logout)...)
	account.Post("/password/change", secured(cfg.Account.ChangePassword)...)
	account.Get("/settings", secured(cfg.Account.GetSettings)...)
	account.Put("/settings", secured(cfg.Account.UpdateSettings)...)
	account.Post("/delete", secured(cfg.Account.Delete)...)
	account.Post("/signup-codes", secured(auth.RequireStaff(), cfg.SignupCodes.Create)...)
}
