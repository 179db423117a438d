package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/repository/memory"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	tok, exp, err := tm.GenerateToken("user-1", domain.RoleStaff)
	require.NoError(t, err)
	assert.False(t, exp.IsZero())

	claims, err := tm.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, domain.RoleStaff, claims.Role)

	_, err = NewTokenManager("other", 5).ParseToken(tok)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret!"))
	assert.Error(t, ComparePassword(hash, "wrong"))
	assert.Error(t, ComparePassword("", "anything"))
}

type stubChecker struct {
	expired bool
	calls   int
}

func (s *stubChecker) IsExpired(context.Context, string) (bool, error) {
	s.calls++
	return s.expired, nil
}

func newExpiryApp(checker ExpiryChecker, dispatcher events.Dispatcher, user *domain.User) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if user != nil {
			c.Locals(principalKey, &Principal{User: user, Role: domain.RoleFor(user)})
		}
		return c.Next()
	})
	mw := NewPasswordExpiryMiddleware(checker, dispatcher, zap.NewNop(), "/account/logout")
	app.Use(mw.Handle)
	ok := func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) }
	app.Get("/account/settings", ok)
	app.Post(PasswordChangePath, ok)
	app.Post("/account/logout", ok)
	return app
}

func TestPasswordExpiryRedirects(t *testing.T) {
	checker := &stubChecker{expired: true}
	dispatcher := events.NewInMemoryDispatcher()
	var published []events.Event
	dispatcher.Subscribe(events.EventPasswordExpired, func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})
	app := newExpiryApp(checker, dispatcher, &domain.User{ID: "u1", Active: true})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/account/settings?tab=1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/account/password/change?next=%2Faccount%2Fsettings%3Ftab%3D1", resp.Header.Get("Location"))
	require.Len(t, published, 1)
	assert.Equal(t, "u1", published[0].UserID)
}

func TestPasswordExpiryExemptions(t *testing.T) {
	checker := &stubChecker{expired: true}

	app := newExpiryApp(checker, nil, &domain.User{ID: "u1", Active: true})
	for _, path := range []string{PasswordChangePath, "/account/logout"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	staffApp := newExpiryApp(checker, nil, &domain.User{ID: "s1", Active: true, Staff: true})
	resp, err := staffApp.Test(httptest.NewRequest(http.MethodGet, "/account/settings", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	anon := newExpiryApp(checker, nil, nil)
	resp, err = anon.Test(httptest.NewRequest(http.MethodGet, "/account/settings", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, checker.calls)
}

func TestAuthMiddleware(t *testing.T) {
	store := memory.NewStore()
	users := store.Repositories().Users
	active := &domain.User{Username: "alice", Active: true}
	inactive := &domain.User{Username: "bob", Active: false}
	require.NoError(t, users.Create(context.Background(), active))
	require.NoError(t, users.Create(context.Background(), inactive))

	tm := NewTokenManager("secret", 5)
	mw := NewAuthMiddleware(tm, users)
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.SendStatus(http.StatusUnauthorized)
	}})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		p, ok := PrincipalFromContext(c)
		require.True(t, ok)
		return c.SendString(p.User.Username)
	})

	call := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	good, _, err := tm.GenerateToken(active.ID, domain.RoleUser)
	require.NoError(t, err)
	disabled, _, err := tm.GenerateToken(inactive.ID, domain.RoleUser)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, call("Bearer "+good))
	assert.Equal(t, http.StatusUnauthorized, call(""))
	assert.Equal(t, http.StatusUnauthorized, call("Bearer garbage"))
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+disabled))
}
