package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/notify"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

func TestOpenSignup(t *testing.T) {
	f := newFixture(t, withHistory)
	ctx := context.Background()

	res, err := f.signup.CreateUserAndBind(ctx, SignupParams{
		Username: "jane",
		Email:    " jane@example.com ",
		Password: "s3cret",
	})
	require.NoError(t, err)

	assert.True(t, res.User.Active)
	assert.Equal(t, "jane@example.com", res.User.Email)
	assert.True(t, res.EmailAddress.Primary)
	assert.False(t, res.EmailAddress.Verified)
	assert.Equal(t, "UTC", res.Account.Timezone)
	assert.Equal(t, "en", res.Account.Language)
	assert.Nil(t, res.SignupCode)

	latest, err := f.store.Repositories().Passwords.LatestHistory(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, res.User.PasswordHash, latest.Password)

	mails := f.notifier.byKind(notify.KindEmailConfirmation)
	require.Len(t, mails, 1)
	assert.Equal(t, "jane", mails[0].data.(notify.ConfirmationData).Username)
	assert.Contains(t, f.events.types(), events.EventUserSignedUp)
}

func TestSignupClosedRequiresCode(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Account.OpenSignup = false })
	_, err := f.signup.CreateUserAndBind(context.Background(), SignupParams{Username: "x", Email: "x@x.com", Password: "pw"})
	assert.ErrorIs(t, err, domain.ErrSignupClosed)
}

func TestSignupWithInvitationVerifiesMatchingEmail(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Account.OpenSignup = false
		c.Account.EmailConfirmationRequired = true
	})
	ctx := context.Background()
	_, err := f.codes.Create(ctx, CreateSignupCodeParams{Code: "INVITE", Email: "bob@example.com", MaxUses: 1})
	require.NoError(t, err)

	res, err := f.signup.CreateUserAndBind(ctx, SignupParams{
		Username: "bob", Email: "Bob@Example.com", Password: "pw", Code: "INVITE",
	})
	require.NoError(t, err)

	assert.True(t, res.EmailAddress.Verified)
	assert.True(t, res.User.Active)
	require.NotNil(t, res.SignupCode)
	assert.Equal(t, 1, res.SignupCode.UseCount)
	assert.Empty(t, f.notifier.byKind(notify.KindEmailConfirmation))

	_, err = f.signup.IsCodeValid(ctx, "INVITE")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestSignupConfirmationRequiredDeactivates(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Account.EmailConfirmationRequired = true })
	ctx := context.Background()

	res, err := f.signup.CreateUserAndBind(ctx, SignupParams{Username: "c", Email: "c@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.False(t, res.User.Active)
	assert.False(t, f.getUser(t, res.User.ID).Active)

	_, err = f.confirmations.ResolveAndConfirm(ctx, lastConfirmationKey(t, f.notifier))
	require.NoError(t, err)
	assert.True(t, f.getUser(t, res.User.ID).Active)
}

func TestSignupInvalidCodeRejectedEvenWhenOpen(t *testing.T) {
	f := newFixture(t)
	_, err := f.signup.CreateUserAndBind(context.Background(), SignupParams{
		Username: "x", Email: "x@x.com", Password: "pw", Code: "bogus",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	_, err = f.store.Repositories().Users.GetByUsername(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSignupUsernameTaken(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "taken", "pw")

	_, err := f.signup.CreateUserAndBind(context.Background(), SignupParams{Username: "taken", Email: "t@x.com", Password: "pw"})
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestSignupRollsBackOnEmailTaken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.createUser(t, "owner", "pw")
	_, err := f.emails.Add(ctx, owner.ID, "dup@x.com", AddEmailOptions{Primary: true})
	require.NoError(t, err)
	_, err = f.codes.Create(ctx, CreateSignupCodeParams{Code: "ONE", MaxUses: 1})
	require.NoError(t, err)

	_, err = f.signup.CreateUserAndBind(ctx, SignupParams{Username: "late", Email: "dup@x.com", Password: "pw", Code: "ONE"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = f.store.Repositories().Users.GetByUsername(ctx, "late")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	sc, err := f.codes.CheckCode(ctx, "ONE")
	require.NoError(t, err)
	assert.Zero(t, sc.UseCount)
}

func TestSignupPreferences(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Account.Languages = []string{"en", "de"} })
	ctx := context.Background()

	res, err := f.signup.CreateUserAndBind(ctx, SignupParams{
		Username: "p", Email: "p@x.com", Password: "pw", Timezone: "Europe/Berlin", Language: "de",
	})
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", res.Account.Timezone)
	assert.Equal(t, "de", res.Account.Language)

	_, err = f.signup.CreateUserAndBind(ctx, SignupParams{Username: "q", Email: "q@x.com", Password: "pw", Timezone: "Nowhere/City"})
	assert.ErrorIs(t, err, domain.ErrInvalidTimezone)

	_, err = f.signup.CreateUserAndBind(ctx, SignupParams{Username: "r", Email: "r@x.com", Password: "pw", Language: "fr"})
	assert.ErrorIs(t, err, domain.ErrInvalidLanguage)
}

func TestSignupSurvivesConfirmationFailure(t *testing.T) {
	f := newFixture(t)
	f.notifier.fail = errors.New("smtp down")

	res, err := f.signup.CreateUserAndBind(context.Background(), SignupParams{Username: "s", Email: "s@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.User.ID)
}

func TestSignupCodeUsedPublishedAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.codes.Create(ctx, CreateSignupCodeParams{Code: "EVT", MaxUses: 2})
	require.NoError(t, err)

	owner := f.createUser(t, "owner", "pw")
	_, err = f.emails.Add(ctx, owner.ID, "dup@x.com", AddEmailOptions{})
	require.NoError(t, err)

	_, err = f.signup.CreateUserAndBind(ctx, SignupParams{Username: "late", Email: "dup@x.com", Password: "pw", Code: "EVT"})
	require.ErrorIs(t, err, domain.ErrEmailTaken)
	assert.NotContains(t, f.events.types(), events.EventSignupCodeUsed)

	_, err = f.signup.CreateUserAndBind(ctx, SignupParams{Username: "ok", Email: "ok@x.com", Password: "pw", Code: "EVT"})
	require.NoError(t, err)
	assert.Equal(t, []events.EventType{events.EventSignupCodeUsed, events.EventUserSignedUp},
		filterEvents(f.events.types(), events.EventSignupCodeUsed, events.EventUserSignedUp))
}

func filterEvents(all []events.EventType, keep ...events.EventType) []events.EventType {
	var out []events.EventType
	for _, e := range all {
		for _, k := range keep {
			if e == k {
				out = append(out, e)
			}
		}
	}
	return out
}
