package auth

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/events"
)

// PasswordChangePath is where callers with an expired password are sent.
const PasswordChangePath = "/account/password/change"

// ExpiryChecker decides whether a user's password has expired.
type ExpiryChecker interface {
	IsExpired(ctx context.Context, userID string) (bool, error)
}

// PasswordExpiryMiddleware redirects authenticated non-staff callers whose
// password has expired to the change-password endpoint.
type PasswordExpiryMiddleware struct {
	checker    ExpiryChecker
	dispatcher events.Dispatcher
	logger     *zap.Logger
	exempt     map[string]struct{}
}

// NewPasswordExpiryMiddleware constructs the middleware. The change-password
// path is always exempt; exemptPaths adds more (logout, for example).
func NewPasswordExpiryMiddleware(checker ExpiryChecker, dispatcher events.Dispatcher, logger *zap.Logger, exemptPaths ...string) *PasswordExpiryMiddleware {
	exempt := map[string]struct{}{PasswordChangePath: {}}
	for _, p := range exemptPaths {
		exempt[p] = struct{}{}
	}
	return &PasswordExpiryMiddleware{checker: checker, dispatcher: dispatcher, logger: logger, exempt: exempt}
}

// Handle runs after AuthMiddleware.
func (m *PasswordExpiryMiddleware) Handle(c *fiber.Ctx) error {
	principal, ok := PrincipalFromContext(c)
	if !ok || principal.IsStaff() {
		return c.Next()
	}
	if _, skip := m.exempt[c.Path()]; skip {
		return c.Next()
	}

	ctx := c.UserContext()
	expired, err := m.checker.IsExpired(ctx, principal.User.ID)
	if err != nil {
		return err
	}
	if !expired {
		return c.Next()
	}

	if m.dispatcher != nil {
		event := events.Event{
			Type:    events.EventPasswordExpired,
			UserID:  principal.User.ID,
			Payload: events.PasswordExpiredPayload{Path: c.Path()},
		}
		if err := m.dispatcher.Publish(ctx, event); err != nil {
			m.logger.Warn("password_expired handlers failed", zap.Error(err))
		}
	}

	target := PasswordChangePath + "?next=" + url.QueryEscape(c.OriginalURL())
	return c.Redirect(target, http.StatusSeeOther)
}
