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

func countPrimaries(addrs []*domain.EmailAddress) int {
	n := 0
	for _, a := range addrs {
		if a.Primary {
			n++
		}
	}
	return n
}

func TestConditionalPrimaryKeepsExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "u", "pw")

	a, err := f.emails.Add(ctx, user.ID, "a@x.com", AddEmailOptions{Primary: true})
	require.NoError(t, err)
	require.True(t, a.Primary)

	added, err := f.emails.Add(ctx, user.ID, "new@x.com", AddEmailOptions{})
	require.NoError(t, err)

	promoted, err := f.emails.SetAsPrimary(ctx, added, true)
	require.NoError(t, err)
	assert.False(t, promoted)
	assert.False(t, added.Primary)

	primary, err := f.emails.GetPrimary(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, primary.ID)
	assert.Equal(t, "a@x.com", f.getUser(t, user.ID).Email)
}

func TestUnconditionalPrimaryLeavesExactlyOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "u", "pw")

	var addrs []*domain.EmailAddress
	for _, email := range []string{"one@x.com", "two@x.com", "three@x.com"} {
		a, err := f.emails.Add(ctx, user.ID, email, AddEmailOptions{})
		require.NoError(t, err)
		addrs = append(addrs, a)
	}

	for _, a := range append(addrs, addrs[0]) {
		promoted, err := f.emails.SetAsPrimary(ctx, a, false)
		require.NoError(t, err)
		assert.True(t, promoted)

		all, err := f.emails.List(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, countPrimaries(all))
		assert.Equal(t, a.Email, f.getUser(t, user.ID).Email)
	}
}

func TestConditionalPrimaryWithoutExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "u", "pw")

	a, err := f.emails.Add(ctx, user.ID, "a@x.com", AddEmailOptions{})
	require.NoError(t, err)
	promoted, err := f.emails.SetAsPrimary(ctx, a, true)
	require.NoError(t, err)
	assert.True(t, promoted)
	assert.Equal(t, "a@x.com", f.getUser(t, user.ID).Email)
}

func TestAddEmailIsIdempotentPerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "u", "pw")

	first, err := f.emails.Add(ctx, user.ID, "a@x.com", AddEmailOptions{Confirm: true})
	require.NoError(t, err)
	second, err := f.emails.Add(ctx, user.ID, "A@X.com", AddEmailOptions{Confirm: true})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	all, err := f.emails.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Len(t, f.notifier.byKind(notify.KindEmailConfirmation), 1)
}

func TestAddEmailUniqueness(t *testing.T) {
	ctx := context.Background()

	t.Run("unique", func(t *testing.T) {
		f := newFixture(t)
		u1 := f.createUser(t, "u1", "pw")
		u2 := f.createUser(t, "u2", "pw")
		_, err := f.emails.Add(ctx, u1.ID, "shared@x.com", AddEmailOptions{})
		require.NoError(t, err)
		_, err = f.emails.Add(ctx, u2.ID, "SHARED@x.com", AddEmailOptions{})
		assert.ErrorIs(t, err, domain.ErrEmailTaken)
	})

	t.Run("not unique", func(t *testing.T) {
		f := newFixture(t, func(c *config.Config) { c.Account.EmailUnique = false })
		u1 := f.createUser(t, "u1", "pw")
		u2 := f.createUser(t, "u2", "pw")
		_, err := f.emails.Add(ctx, u1.ID, "shared@x.com", AddEmailOptions{})
		require.NoError(t, err)
		_, err = f.emails.Add(ctx, u2.ID, "shared@x.com", AddEmailOptions{})
		assert.NoError(t, err)
	})
}

func TestChangeEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "u", "pw")

	addr, err := f.emails.Add(ctx, user.ID, "old@x.com", AddEmailOptions{Primary: true, Verified: true})
	require.NoError(t, err)

	require.NoError(t, f.emails.Change(ctx, addr, "new@x.com", true))
	assert.Equal(t, "new@x.com", addr.Email)
	assert.False(t, addr.Verified)
	assert.True(t, addr.Primary)
	assert.Equal(t, "new@x.com", f.getUser(t, user.ID).Email)

	mails := f.notifier.byKind(notify.KindEmailConfirmation)
	require.Len(t, mails, 1)
	assert.Equal(t, []string{"new@x.com"}, mails[0].to)
}

func TestChangeEmailTakenRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.createUser(t, "u1", "pw")
	u2 := f.createUser(t, "u2", "pw")

	_, err := f.emails.Add(ctx, u1.ID, "taken@x.com", AddEmailOptions{Primary: true})
	require.NoError(t, err)
	addr, err := f.emails.Add(ctx, u2.ID, "mine@x.com", AddEmailOptions{Primary: true})
	require.NoError(t, err)

	err = f.emails.Change(ctx, addr, "taken@x.com", true)
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
	assert.Equal(t, "mine@x.com", addr.Email)
	assert.Equal(t, "mine@x.com", f.getUser(t, u2.ID).Email)
	assert.Empty(t, f.notifier.byKind(notify.KindEmailConfirmation))
}

func TestUsersForOnlyVerified(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Account.EmailUnique = false })
	ctx := context.Background()
	u1 := f.createUser(t, "u1", "pw")
	u2 := f.createUser(t, "u2", "pw")

	_, err := f.emails.Add(ctx, u1.ID, "who@x.com", AddEmailOptions{Verified: true})
	require.NoError(t, err)
	_, err = f.emails.Add(ctx, u2.ID, "who@x.com", AddEmailOptions{})
	require.NoError(t, err)

	users, err := f.emails.UsersFor(ctx, "who@x.com")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, u1.ID, users[0].ID)

	none, err := f.emails.UsersFor(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.Empty(t, none)
}
