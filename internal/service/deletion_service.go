package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/repository"
)

// AccountHooks are the user-record actions taken by the deletion lifecycle.
type AccountHooks interface {
	Deactivate(ctx context.Context, userID string) error
	Purge(ctx context.Context, userID string) error
}

type userRecordHooks struct {
	deps Dependencies
}

func (h userRecordHooks) Deactivate(ctx context.Context, userID string) error {
	return h.deps.repos(ctx).Users.SetActive(ctx, userID, false)
}

func (h userRecordHooks) Purge(ctx context.Context, userID string) error {
	return h.deps.repos(ctx).Users.Delete(ctx, userID)
}

// DeletionService marks accounts for deletion and purges them after a grace period.
type DeletionService struct {
	cfg   config.AccountConfig
	deps  Dependencies
	hooks AccountHooks
}

// NewDeletionService builds the service. A nil hooks value deactivates and
// deletes user records directly.
func NewDeletionService(cfg config.AccountConfig, deps Dependencies, hooks AccountHooks) *DeletionService {
	deps = deps.withDefaults()
	if hooks == nil {
		hooks = userRecordHooks{deps: deps}
	}
	return &DeletionService{cfg: cfg, deps: deps, hooks: hooks}
}

// Mark records a deletion request and deactivates the user. Calling it again
// refreshes the email snapshot without creating another record.
func (s *DeletionService) Mark(ctx context.Context, userID string) (*domain.AccountDeletion, error) {
	var deletion *domain.AccountDeletion
	err := s.deps.Store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user, err := repos.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		existing, err := repos.Deletions.GetByUserID(ctx, userID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			uid := userID
			deletion = &domain.AccountDeletion{UserID: &uid, Email: user.Email, DateRequested: s.deps.Now()}
			if err := repos.Deletions.Create(ctx, deletion); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			existing.Email = user.Email
			if err := repos.Deletions.Update(ctx, existing); err != nil {
				return err
			}
			deletion = existing
		}

		return s.hooks.Deactivate(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	s.deps.publish(ctx, events.Event{
		Type:    events.EventAccountMarkedDeleted,
		UserID:  userID,
		Payload: events.AccountDeletionPayload{DeletionID: deletion.ID, Email: deletion.Email},
	})
	return deletion, nil
}

// Expunge purges every account marked more than graceHours ago. Records are
// processed independently: a failure is logged and reported in the joined
// error while already processed records stay expunged. graceHours <= 0
// uses the configured default.
func (s *DeletionService) Expunge(ctx context.Context, graceHours int) (int, error) {
	grace := s.cfg.ExpungeGrace()
	if graceHours > 0 {
		grace = time.Duration(graceHours) * time.Hour
	}

	pending, err := s.deps.repos(ctx).Deletions.ListExpungeable(ctx, s.deps.Now().Add(-grace))
	if err != nil {
		return 0, err
	}

	var (
		count int
		errs  []error
	)
	for _, d := range pending {
		if err := s.expungeOne(ctx, d); err != nil {
			s.deps.Logger.Error("account expunge failed", zap.String("deletion_id", d.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("deletion %s: %w", d.ID, err))
			continue
		}
		count++
	}

	s.deps.Metrics.RecordExpunged(count)
	if count > 0 {
		s.deps.Logger.Info("accounts expunged", zap.Int("count", count))
	}
	return count, errors.Join(errs...)
}

func (s *DeletionService) expungeOne(ctx context.Context, d *domain.AccountDeletion) error {
	userID := *d.UserID
	err := s.deps.Store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := s.hooks.Purge(ctx, userID); err != nil {
			return err
		}
		now := s.deps.Now()
		d.UserID = nil
		d.DateExpunged = &now
		return repos.Deletions.Update(ctx, d)
	})
	if err != nil {
		d.UserID = &userID
		d.DateExpunged = nil
		return err
	}

	s.deps.publish(ctx, events.Event{
		Type:    events.EventAccountExpunged,
		UserID:  userID,
		Payload: events.AccountDeletionPayload{DeletionID: d.ID, Email: d.Email},
	})
	return nil
}
