package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/config"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier delivers messages through an SMTP relay.
type EmailNotifier struct {
	templateNotifier
	cfg      config.NotificationConfig
	sendMail sendMailFunc
	logger   *zap.Logger
}

// NewEmailNotifier builds an SMTP notifier.
func NewEmailNotifier(cfg config.NotificationConfig, renderer *Renderer, logger *zap.Logger) *EmailNotifier {
	n := &EmailNotifier{cfg: cfg, sendMail: smtp.SendMail, logger: logger}
	n.templateNotifier = templateNotifier{renderer: renderer, deliver: n.deliver}
	return n
}

func (n *EmailNotifier) deliver(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if n.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", n.cfg.SMTPUser, n.cfg.SMTPPassword, n.cfg.SMTPHost)
	}

	addr := net.JoinHostPort(n.cfg.SMTPHost, n.cfg.SMTPPort)
	if err := n.sendMail(addr, auth, n.cfg.EmailFrom, msg.To, formatMessage(n.cfg.EmailFrom, msg)); err != nil {
		n.logger.Error("failed to send email", zap.String("kind", string(msg.Kind)), zap.Strings("to", msg.To), zap.Error(err))
		return fmt.Errorf("send %s email: %w", msg.Kind, err)
	}

	n.logger.Info("email sent", zap.String("kind", string(msg.Kind)), zap.Int("recipients", len(msg.To)))
	return nil
}

func formatMessage(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogNotifier writes messages to the log instead of sending them.
type LogNotifier struct {
	templateNotifier
	logger *zap.Logger
}

// NewLogNotifier builds a notifier for environments without SMTP.
func NewLogNotifier(renderer *Renderer, logger *zap.Logger) *LogNotifier {
	n := &LogNotifier{logger: logger}
	n.templateNotifier = templateNotifier{renderer: renderer, deliver: n.deliver}
	return n
}

func (n *LogNotifier) deliver(_ context.Context, msg Message) error {
	n.logger.Info("email (log channel)",
		zap.String("kind", string(msg.Kind)),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

// New picks the SMTP notifier when a host is configured and the log
// notifier otherwise.
func New(cfg config.NotificationConfig, logger *zap.Logger) (Notifier, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		logger.Warn("SMTP_HOST not provided; emails are written to the log")
		return NewLogNotifier(renderer, logger), nil
	}
	return NewEmailNotifier(cfg, renderer, logger), nil
}
