package worker

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/config"
)

// Runner is a job runner.
type Runner interface {
	Spec(context.Context) string
	Func(context.Context) func()
}

// Expunger purges accounts whose deletion grace period has passed.
type Expunger interface {
	Expunge(ctx context.Context, graceHours int) (int, error)
}

// ConfirmationPurger deletes expired email confirmations.
type ConfirmationPurger interface {
	DeleteExpired(ctx context.Context) (int, error)
}

// ExpungeJob runs the account expunge sweep with the configured grace period.
type ExpungeJob struct {
	Schedule string
	Accounts Expunger
	Logger   *zap.Logger
}

func (j ExpungeJob) Spec(context.Context) string { return j.Schedule }

func (j ExpungeJob) Func(ctx context.Context) func() {
	return func() {
		n, err := j.Accounts.Expunge(ctx, 0)
		if err != nil {
			j.Logger.Error("expunge sweep finished with errors", zap.Int("expunged", n), zap.Error(err))
			return
		}
		j.Logger.Debug("expunge sweep finished", zap.Int("expunged", n))
	}
}

// ConfirmationPurgeJob removes confirmations past their window.
type ConfirmationPurgeJob struct {
	Schedule      string
	Confirmations ConfirmationPurger
	Logger        *zap.Logger
}

func (j ConfirmationPurgeJob) Spec(context.Context) string { return j.Schedule }

func (j ConfirmationPurgeJob) Func(ctx context.Context) func() {
	return func() {
		n, err := j.Confirmations.DeleteExpired(ctx)
		if err != nil {
			j.Logger.Error("confirmation purge failed", zap.Error(err))
			return
		}
		j.Logger.Debug("confirmation purge finished", zap.Int("deleted", n))
	}
}

// Jobs builds the maintenance jobs enabled by cfg. A job with an empty
// schedule is left out.
func Jobs(cfg config.SchedulerConfig, accounts Expunger, confirmations ConfirmationPurger, logger *zap.Logger) map[string]Runner {
	jobs := map[string]Runner{}
	if cfg.ExpungeSpec != "" && accounts != nil {
		jobs["expunge-deleted"] = ExpungeJob{Schedule: cfg.ExpungeSpec, Accounts: accounts, Logger: logger}
	}
	if cfg.ConfirmationPurgeSpec != "" && confirmations != nil {
		jobs["purge-confirmations"] = ConfirmationPurgeJob{Schedule: cfg.ConfirmationPurgeSpec, Confirmations: confirmations, Logger: logger}
	}
	return jobs
}

// Register adds every job to the scheduler and returns their entry ids by name.
func Register(ctx context.Context, s *Scheduler, jobs map[string]Runner) (map[string]int, error) {
	names := make([]string, 0, len(jobs))
	for n := range jobs {
		names = append(names, n)
	}
	sort.Strings(names)

	ids := make(map[string]int, len(jobs))
	for _, n := range names {
		j := jobs[n]
		id, err := s.AddFunc(j.Spec(ctx), j.Func(ctx))
		if err != nil {
			return ids, fmt.Errorf("add cron job %s: %w", n, err)
		}
		ids[n] = id
	}
	return ids, nil
}
