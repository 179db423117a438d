package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/notify"
	"github.com/spec-kit/account-service/internal/observability"
	"github.com/spec-kit/account-service/internal/repository"
	"github.com/spec-kit/account-service/internal/token"
)

// Dependencies are the collaborators shared by the account services.
type Dependencies struct {
	Store      repository.Store
	Tokens     token.Generator
	Notifier   notify.Notifier
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Tokens == nil {
		d.Tokens = token.NewGenerator()
	}
	if d.Dispatcher == nil {
		d.Dispatcher = events.NewInMemoryDispatcher()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// repos returns the repositories of the enclosing transaction when there is one.
func (d Dependencies) repos(ctx context.Context) repository.Repositories {
	if repos, ok := repository.TxFromContext(ctx); ok {
		return repos
	}
	return d.Store.Repositories()
}

// publish emits an event. Handler failures are logged and never fail the caller.
func (d Dependencies) publish(ctx context.Context, event events.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = d.Now()
	}
	if err := d.Dispatcher.Publish(ctx, event); err != nil {
		d.Logger.Warn("event handlers failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}

func siteName(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return siteURL
	}
	return u.Host
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
