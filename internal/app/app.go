// Package app assembles the account service from configuration. Both the
// API server and accountctl build on it.
package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/notify"
	"github.com/spec-kit/account-service/internal/observability"
	"github.com/spec-kit/account-service/internal/persistence"
	"github.com/spec-kit/account-service/internal/repository"
	"github.com/spec-kit/account-service/internal/repository/memory"
	"github.com/spec-kit/account-service/internal/service"
)

// Container holds the process-wide collaborators.
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Postgres   *persistence.Postgres
	Redis      *persistence.Redis
	Store      repository.Store
	Dispatcher events.Dispatcher
	Tokens     *auth.TokenManager
	Services   *service.Services
}

// New connects to the configured backends. Without a Postgres DSN the
// in-memory store is used; without Redis reset tokens stay in memory.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg, logger); err != nil {
			pg.Close()
			return nil, err
		}
	}

	rdb := persistence.NewRedis(cfg.Redis, logger)

	var store repository.Store
	if pg.Enabled() {
		store = repository.NewPostgresStore(pg.Pool)
	} else {
		store = memory.NewStore()
	}

	var resets repository.PasswordResetRepository
	if rdb.Enabled() {
		resets = repository.NewPasswordResetRepository(rdb.Client)
	} else {
		resets = memory.NewPasswordResetRepository()
	}

	notifier, err := notify.New(cfg.Notification, logger)
	if err != nil {
		rdb.Close()
		pg.Close()
		return nil, err
	}

	c := &Container{
		Config:     cfg,
		Logger:     logger,
		Metrics:    observability.NewMetrics(),
		Postgres:   pg,
		Redis:      rdb,
		Store:      store,
		Dispatcher: events.NewInMemoryDispatcher(),
		Tokens:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
	}
	c.Services = service.NewServices(*cfg, service.Dependencies{
		Store:      store,
		Notifier:   notifier,
		Dispatcher: c.Dispatcher,
		Metrics:    c.Metrics,
		Logger:     logger,
	}, c.Tokens, resets, nil)
	return c, nil
}

// Close releases backend connections.
func (c *Container) Close() {
	c.Redis.Close()
	c.Postgres.Close()
}
