package app

import (
	"github.com/gofiber/fiber/v2"

	httptransport "github.com/spec-kit/account-service/internal/api/http"
	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
)

// NewHTTPServer builds the fiber app with every route registered.
func (c *Container) NewHTTPServer() *fiber.App {
	cfg := c.Config
	svc := c.Services

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, c.Logger, c.Metrics, cfg.App.RequestTimeout())

	deps := map[string]handlers.Dependency{}
	if c.Postgres != nil {
		deps["postgres"] = c.Postgres
	}
	if c.Redis != nil {
		deps["redis"] = c.Redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Account: handlers.NewAccountHandler(handlers.AccountServices{
			Signup:        svc.Signup,
			Auth:          svc.Auth,
			Confirmations: svc.Confirmations,
			Settings:      svc.Settings,
			Deletions:     svc.Deletions,
		}),
		SignupCodes:    handlers.NewSignupCodesHandler(svc.SignupCodes),
		AuthMiddleware: auth.NewAuthMiddleware(c.Tokens, c.Store.Repositories().Users),
		PasswordExpiry: auth.NewPasswordExpiryMiddleware(svc.Policy, c.Dispatcher, c.Logger, httptransport.LogoutPath),
		Metrics:        c.Metrics,
	})
	return app
}
