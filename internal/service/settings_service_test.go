package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/notify"
)

func strPtr(s string) *string { return &s }

func TestSettingsCreatedLazily(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "u", "pw")

	s, err := f.settings.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "UTC", s.Account.Timezone)
	assert.Equal(t, "en", s.Account.Language)
	assert.Empty(t, s.Email)

	again, err := f.settings.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Account.ID, again.Account.ID)
}

func TestUpdateSettingsPreferences(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Account.Languages = []string{"en", "de"} })
	ctx := context.Background()
	user := signupUser(t, f, "u", "u@x.com", "pw")

	s, err := f.settings.Update(ctx, user.ID, UpdateSettingsParams{Timezone: strPtr("America/New_York"), Language: strPtr("de")})
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", s.Account.Timezone)
	assert.Equal(t, "de", s.Account.Language)
	assert.Equal(t, "u@x.com", s.Email)

	_, err = f.settings.Update(ctx, user.ID, UpdateSettingsParams{Language: strPtr("fr")})
	assert.ErrorIs(t, err, domain.ErrInvalidLanguage)

	s, err = f.settings.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "de", s.Account.Language)
}

func TestUpdateSettingsEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := signupUser(t, f, "u", "u@x.com", "pw")
	before := len(f.notifier.byKind(notify.KindEmailConfirmation))

	s, err := f.settings.Update(ctx, user.ID, UpdateSettingsParams{Email: strPtr("u@x.com")})
	require.NoError(t, err)
	assert.Equal(t, "u@x.com", s.Email)
	assert.Len(t, f.notifier.byKind(notify.KindEmailConfirmation), before)

	s, err = f.settings.Update(ctx, user.ID, UpdateSettingsParams{Email: strPtr("moved@x.com")})
	require.NoError(t, err)
	assert.Equal(t, "moved@x.com", s.Email)
	assert.Equal(t, "moved@x.com", f.getUser(t, user.ID).Email)
	assert.Len(t, f.notifier.byKind(notify.KindEmailConfirmation), before+1)
}

func TestUpdateSettingsEmailWithoutPrimary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "u", "pw")

	s, err := f.settings.Update(ctx, user.ID, UpdateSettingsParams{Email: strPtr("first@x.com")})
	require.NoError(t, err)
	assert.Equal(t, "first@x.com", s.Email)

	primary, err := f.emails.GetPrimary(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, primary)
	assert.False(t, primary.Verified)
	assert.Len(t, f.notifier.byKind(notify.KindEmailConfirmation), 1)
}

func TestUpdateSettingsTakenEmailKeepsPreferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signupUser(t, f, "a", "a@x.com", "pw")
	b := signupUser(t, f, "b", "b@x.com", "pw")

	_, err := f.settings.Update(ctx, b.ID, UpdateSettingsParams{
		Email:    strPtr("A@x.com"),
		Timezone: strPtr("America/New_York"),
	})
	require.ErrorIs(t, err, domain.ErrEmailTaken)

	s, err := f.settings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "UTC", s.Account.Timezone)
	assert.Equal(t, "b@x.com", s.Email)
}
