package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/config"
)

func TestRenderConfirmation(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	msg, err := r.Render(KindEmailConfirmation, []string{"a@example.com"}, ConfirmationData{
		Username:    "alice",
		Email:       "a@example.com",
		ActivateURL: "http://localhost/account/confirm-email/abc",
		ExpireDays:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Confirm your email address", msg.Subject)
	assert.Contains(t, msg.Body, "http://localhost/account/confirm-email/abc")
	assert.Contains(t, msg.Body, "3 day(s)")
}

func TestRenderInvitationWithoutInviter(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	msg, err := r.Render(KindInvitation, []string{"x@example.com"}, InvitationData{SiteName: "Example", SignupURL: "http://s/signup?code=c"})
	require.NoError(t, err)
	assert.Equal(t, "You have been invited to Example", msg.Subject)
	assert.Contains(t, msg.Body, "You have been invited to join Example.")
	assert.NotContains(t, msg.Body, "expires")
}

func TestEmailNotifierSends(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	cfg := config.NotificationConfig{EmailFrom: "noreply@example.com", SMTPHost: "smtp.example.com", SMTPPort: "2525"}
	n := NewEmailNotifier(cfg, r, zap.NewNop())

	var gotAddr string
	var gotTo []string
	var gotMsg string
	n.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		assert.Nil(t, a)
		return nil
	}

	err = n.SendPasswordReset(context.Background(), "bob@example.com", PasswordResetData{Username: "bob", ResetURL: "http://r"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, []string{"bob@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(gotMsg, "From: noreply@example.com\r\n"))
	assert.Contains(t, gotMsg, "Subject: Reset your password\r\n")
}

func TestEmailNotifierReportsFailure(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	n := NewEmailNotifier(config.NotificationConfig{SMTPHost: "h", SMTPPort: "25"}, r, zap.NewNop())
	n.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("relay down") }

	err = n.SendPasswordChange(context.Background(), "c@example.com", PasswordChangeData{Username: "c"})
	assert.ErrorContains(t, err, "relay down")
}

func TestNewSelectsLogChannel(t *testing.T) {
	n, err := New(config.NotificationConfig{}, zap.NewNop())
	require.NoError(t, err)
	_, ok := n.(*LogNotifier)
	assert.True(t, ok)
	assert.NoError(t, n.SendInvitation(context.Background(), []string{"a@example.com"}, InvitationData{}))
	assert.Error(t, n.SendInvitation(context.Background(), nil, InvitationData{}))
}
