package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/app"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
)

func memoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("ACCOUNT_SITE_URL", "https://accounts.example.com")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCreateSignupsWritesURLs(t *testing.T) {
	memoryEnv(t)
	file := filepath.Join(t.TempDir(), "codes.txt")

	out, err := run(t, "create-signups", "3", file, "--expiry-hours", "48")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 3 signup codes")

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	seen := map[string]bool{}
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, "https://accounts.example.com/account/signup?code="), l)
		seen[l] = true
	}
	assert.Len(t, seen, 3)
}

func TestCreateSignupsRejectsBadCount(t *testing.T) {
	memoryEnv(t)
	_, err := run(t, "create-signups", "zero", filepath.Join(t.TempDir(), "x"))
	assert.Error(t, err)
}

func TestExpungeDeletedOnEmptyStore(t *testing.T) {
	memoryEnv(t)
	out, err := run(t, "expunge-deleted", "--hours", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Expunged 0 accounts")
}

func TestPasswordExpiryUnknownUser(t *testing.T) {
	memoryEnv(t)
	_, err := run(t, "password-expiry", "ghost", "--expire", "60")
	assert.ErrorContains(t, err, "user ghost")
}

func newContainer(t *testing.T) *app.Container {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	c, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	return c
}

func runWith(t *testing.T, c *app.Container, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.WithValue(context.Background(), containerKey{}, c))
	return out.String(), err
}

func TestPasswordExpiryDefaultsToConfiguredExpiry(t *testing.T) {
	memoryEnv(t)
	t.Setenv("ACCOUNT_PASSWORD_EXPIRY_SECONDS", "3600")
	c := newContainer(t)
	ctx := context.Background()
	repos := c.Store.Repositories()
	user := &domain.User{Username: "alice", Active: true}
	require.NoError(t, repos.Users.Create(ctx, user))

	out, err := runWith(t, c, "password-expiry", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Password for alice expires")

	expiry, err := repos.Passwords.GetExpiry(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3600, expiry.Expiry)
}

func TestPasswordExpiryExplicitZeroNeverExpires(t *testing.T) {
	memoryEnv(t)
	t.Setenv("ACCOUNT_PASSWORD_EXPIRY_SECONDS", "3600")
	c := newContainer(t)
	ctx := context.Background()
	repos := c.Store.Repositories()
	user := &domain.User{Username: "bob", Active: true}
	require.NoError(t, repos.Users.Create(ctx, user))

	out, err := runWith(t, c, "password-expiry", "bob", "--expire", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "never expires")

	expiry, err := repos.Passwords.GetExpiry(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, expiry.Expiry)
}

func TestPasswordHistoryOnEmptyStore(t *testing.T) {
	memoryEnv(t)
	out, err := run(t, "password-history", "--days", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded 0 password history entries")
}

func TestMigrateRequiresPostgres(t *testing.T) {
	memoryEnv(t)
	_, err := run(t, "migrate")
	assert.ErrorContains(t, err, "POSTGRES_DSN")
}
