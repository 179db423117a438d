package service

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/notify"
	"github.com/spec-kit/account-service/internal/repository/memory"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	kind notify.Kind
	to   []string
	data any
}

// recordingNotifier keeps every message in memory. Setting fail makes every
// send return it.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (n *recordingNotifier) record(kind notify.Kind, to []string, data any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, sentMail{kind: kind, to: to, data: data})
	return nil
}

func (n *recordingNotifier) SendInvitation(_ context.Context, to []string, data notify.InvitationData) error {
	return n.record(notify.KindInvitation, to, data)
}

func (n *recordingNotifier) SendConfirmation(_ context.Context, to string, data notify.ConfirmationData) error {
	return n.record(notify.KindEmailConfirmation, []string{to}, data)
}

func (n *recordingNotifier) SendPasswordChange(_ context.Context, to string, data notify.PasswordChangeData) error {
	return n.record(notify.KindPasswordChange, []string{to}, data)
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, to string, data notify.PasswordResetData) error {
	return n.record(notify.KindPasswordReset, []string{to}, data)
}

func (n *recordingNotifier) byKind(kind notify.Kind) []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentMail
	for _, m := range n.sent {
		if m.kind == kind {
			out = append(out, m)
		}
	}
	return out
}

type fixture struct {
	cfg      config.Config
	store    *memory.Store
	resets   *memory.PasswordResetRepository
	clock    *testClock
	notifier *recordingNotifier
	events   *eventLog
	deps     Dependencies

	codes         *SignupCodeService
	confirmations *ConfirmationService
	emails        *EmailAddressService
	policy        *PasswordPolicy
	signup        *SignupService
	auth          *AuthService
	deletions     *DeletionService
	settings      *SettingsService
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) handle(_ context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()

	cfg := config.Config{
		Account: config.DefaultAccountConfig(),
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   15,
			PasswordResetTTLMinutes: 60,
			BcryptCost:              4,
		},
	}
	cfg.Account.PasswordExpiryCacheTTLSec = 0
	for _, m := range mutate {
		m(&cfg)
	}

	f := &fixture{
		cfg:      cfg,
		store:    memory.NewStore(),
		resets:   memory.NewPasswordResetRepository(),
		clock:    &testClock{now: testEpoch},
		notifier: &recordingNotifier{},
		events:   &eventLog{},
	}

	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range events.AllEventTypes {
		dispatcher.Subscribe(et, f.events.handle)
	}

	f.deps = Dependencies{
		Store:      f.store,
		Notifier:   f.notifier,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Now:        f.clock.Now,
	}

	acc := cfg.Account
	f.codes = NewSignupCodeService(acc, f.deps)
	f.confirmations = NewConfirmationService(acc, f.deps)
	f.emails = NewEmailAddressService(acc, f.deps, f.confirmations)
	f.policy = NewPasswordPolicy(acc, f.deps)
	f.signup = NewSignupService(cfg, f.deps, SignupDependencies{
		Codes:         f.codes,
		Emails:        f.emails,
		Confirmations: f.confirmations,
		Policy:        f.policy,
	})
	f.auth = NewAuthService(cfg, f.deps, AuthDependencies{
		PasswordResetRepo: f.resets,
		Emails:            f.emails,
		Policy:            f.policy,
	})
	f.deletions = NewDeletionService(acc, f.deps, nil)
	f.settings = NewSettingsService(acc, f.deps, f.emails)
	return f
}

// createUser inserts an active user with a usable password directly.
func (f *fixture) createUser(t *testing.T, username, password string) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password, f.cfg.Auth.BcryptCost)
	require.NoError(t, err)
	user := &domain.User{Username: username, PasswordHash: hash, Active: true}
	require.NoError(t, f.store.Repositories().Users.Create(context.Background(), user))
	return user
}

func (f *fixture) getUser(t *testing.T, id string) *domain.User {
	t.Helper()
	user, err := f.store.Repositories().Users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return user
}

func lastConfirmationKey(t *testing.T, n *recordingNotifier) string {
	t.Helper()
	mails := n.byKind(notify.KindEmailConfirmation)
	require.NotEmpty(t, mails)
	return mails[len(mails)-1].data.(notify.ConfirmationData).Key
}

func lastResetToken(t *testing.T, n *recordingNotifier) string {
	t.Helper()
	mails := n.byKind(notify.KindPasswordReset)
	require.NotEmpty(t, mails)
	u, err := url.Parse(mails[len(mails)-1].data.(notify.PasswordResetData).ResetURL)
	require.NoError(t, err)
	return u.Query().Get("token")
}
