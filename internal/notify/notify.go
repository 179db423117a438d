// Package notify renders account emails and delivers them over SMTP, or to
// the log when no SMTP server is configured.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Kind selects a message template.
type Kind string

const (
	KindInvitation        Kind = "invitation"
	KindEmailConfirmation Kind = "email_confirmation"
	KindPasswordChange    Kind = "password_change"
	KindPasswordReset     Kind = "password_reset"
)

// InvitationData fills the signup invitation.
type InvitationData struct {
	SiteName    string
	SignupURL   string
	Code        string
	InviterName string
	Expiry      string
	Extra       map[string]any
}

// ConfirmationData fills the email confirmation message.
type ConfirmationData struct {
	Username    string
	Email       string
	ActivateURL string
	Key         string
	ExpireDays  int
}

// PasswordChangeData fills the password change notice.
type PasswordChangeData struct {
	Username  string
	ChangedAt string
}

// PasswordResetData fills the password reset message.
type PasswordResetData struct {
	Username string
	ResetURL string
}

// Notifier sends templated account messages.
type Notifier interface {
	SendInvitation(ctx context.Context, to []string, data InvitationData) error
	SendConfirmation(ctx context.Context, to string, data ConfirmationData) error
	SendPasswordChange(ctx context.Context, to string, data PasswordChangeData) error
	SendPasswordReset(ctx context.Context, to string, data PasswordResetData) error
}

// Message is a rendered email.
type Message struct {
	Kind    Kind
	To      []string
	Subject string
	Body    string
}

// Renderer turns message data into a Message.
type Renderer struct {
	templates map[Kind]*template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: map[Kind]*template.Template{}}
	for _, kind := range []Kind{KindInvitation, KindEmailConfirmation, KindPasswordChange, KindPasswordReset} {
		tmpl, err := template.New(string(kind)).ParseFS(templateFS, "templates/"+string(kind)+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", kind, err)
		}
		r.templates[kind] = tmpl
	}
	return r, nil
}

// Render executes the subject and body blocks of the kind's template.
func (r *Renderer) Render(kind Kind, to []string, data any) (Message, error) {
	tmpl, ok := r.templates[kind]
	if !ok {
		return Message{}, fmt.Errorf("unknown template %q", kind)
	}

	var subject, body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&subject, "subject", data); err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := tmpl.ExecuteTemplate(&body, "body", data); err != nil {
		return Message{}, fmt.Errorf("render %s body: %w", kind, err)
	}

	return Message{
		Kind:    kind,
		To:      to,
		Subject: strings.TrimSpace(subject.String()),
		Body:    strings.TrimLeft(body.String(), "\n"),
	}, nil
}

// deliverFunc hands a rendered message to a channel.
type deliverFunc func(ctx context.Context, msg Message) error

// templateNotifier implements Notifier on top of a Renderer and a channel.
type templateNotifier struct {
	renderer *Renderer
	deliver  deliverFunc
}

func (n *templateNotifier) send(ctx context.Context, kind Kind, to []string, data any) error {
	if len(to) == 0 {
		return fmt.Errorf("%s: no recipients", kind)
	}
	msg, err := n.renderer.Render(kind, to, data)
	if err != nil {
		return err
	}
	return n.deliver(ctx, msg)
}

func (n *templateNotifier) SendInvitation(ctx context.Context, to []string, data InvitationData) error {
	return n.send(ctx, KindInvitation, to, data)
}

func (n *templateNotifier) SendConfirmation(ctx context.Context, to string, data ConfirmationData) error {
	return n.send(ctx, KindEmailConfirmation, []string{to}, data)
}

func (n *templateNotifier) SendPasswordChange(ctx context.Context, to string, data PasswordChangeData) error {
	return n.send(ctx, KindPasswordChange, []string{to}, data)
}

func (n *templateNotifier) SendPasswordReset(ctx context.Context, to string, data PasswordResetData) error {
	return n.send(ctx, KindPasswordReset, []string{to}, data)
}
