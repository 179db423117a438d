package repository

import (
	"context"
	"time"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/persistence"
)

// EmailConfirmationRepository persists confirmation keys.
type EmailConfirmationRepository interface {
	Create(ctx context.Context, conf *domain.EmailConfirmation) error
	GetByKey(ctx context.Context, key string) (*domain.EmailConfirmation, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	// DeleteExpired removes confirmations sent before cutoff and unsent ones
	// created before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

type emailConfirmationRepository struct {
	db persistence.DBTX
}

// NewEmailConfirmationRepository returns a Postgres-backed implementation.
func NewEmailConfirmationRepository(db persistence.DBTX) EmailConfirmationRepository {
	return &emailConfirmationRepository{db: db}
}

func (r *emailConfirmationRepository) Create(ctx context.Context, conf *domain.EmailConfirmation) error {
	const query = `
        INSERT INTO email_confirmations (email_address_id, key, created_at)
        VALUES ($1, $2, $3)
        RETURNING id`

	err := r.db.QueryRow(ctx, query, conf.EmailAddressID, conf.Key, conf.CreatedAt).Scan(&conf.ID)
	return mapError(err)
}

func (r *emailConfirmationRepository) GetByKey(ctx context.Context, key string) (*domain.EmailConfirmation, error) {
	const query = `
        SELECT id, email_address_id, key, created_at, sent
        FROM email_confirmations WHERE key=$1`

	var conf domain.EmailConfirmation
	if err := r.db.QueryRow(ctx, query, key).Scan(
		&conf.ID,
		&conf.EmailAddressID,
		&conf.Key,
		&conf.CreatedAt,
		&conf.Sent,
	); err != nil {
		return nil, mapError(err)
	}
	return &conf, nil
}

func (r *emailConfirmationRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	return requireAffected(r.db.Exec(ctx, `UPDATE email_confirmations SET sent=$1 WHERE id=$2`, at, id))
}

func (r *emailConfirmationRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	const query = `
        DELETE FROM email_confirmations
        WHERE sent < $1 OR (sent IS NULL AND created_at < $1)`

	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
