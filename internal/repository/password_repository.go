package repository

import (
	"context"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/persistence"
)

// PasswordRepository persists password history and per-user expiry overrides.
type PasswordRepository interface {
	AddHistory(ctx context.Context, entry *domain.PasswordHistory) error
	// LatestHistory returns domain.ErrNotFound when the user has no history.
	LatestHistory(ctx context.Context, userID string) (*domain.PasswordHistory, error)
	// GetExpiry returns domain.ErrNotFound when no override exists.
	GetExpiry(ctx context.Context, userID string) (*domain.PasswordExpiry, error)
	UpsertExpiry(ctx context.Context, expiry *domain.PasswordExpiry) error
}

type passwordRepository struct {
	db persistence.DBTX
}

// NewPasswordRepository returns a Postgres-backed implementation.
func NewPasswordRepository(db persistence.DBTX) PasswordRepository {
	return &passwordRepository{db: db}
}

func (r *passwordRepository) AddHistory(ctx context.Context, entry *domain.PasswordHistory) error {
	const query = `
        INSERT INTO password_history (user_id, password, changed_at)
        VALUES ($1, $2, $3)
        RETURNING id`

	err := r.db.QueryRow(ctx, query, entry.UserID, entry.Password, entry.Timestamp).Scan(&entry.ID)
	return mapError(err)
}

func (r *passwordRepository) LatestHistory(ctx context.Context, userID string) (*domain.PasswordHistory, error) {
	const query = `
        SELECT id, user_id, password, changed_at
        FROM password_history WHERE user_id=$1
        ORDER BY changed_at DESC LIMIT 1`

	var entry domain.PasswordHistory
	if err := r.db.QueryRow(ctx, query, userID).Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Password,
		&entry.Timestamp,
	); err != nil {
		return nil, mapError(err)
	}
	return &entry, nil
}

func (r *passwordRepository) GetExpiry(ctx context.Context, userID string) (*domain.PasswordExpiry, error) {
	const query = `SELECT id, user_id, expiry FROM password_expiry WHERE user_id=$1`

	var expiry domain.PasswordExpiry
	if err := r.db.QueryRow(ctx, query, userID).Scan(&expiry.ID, &expiry.UserID, &expiry.Expiry); err != nil {
		return nil, mapError(err)
	}
	return &expiry, nil
}

func (r *passwordRepository) UpsertExpiry(ctx context.Context, expiry *domain.PasswordExpiry) error {
	const query = `
        INSERT INTO password_expiry (user_id, expiry)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE SET expiry = EXCLUDED.expiry
        RETURNING id`

	err := r.db.QueryRow(ctx, query, expiry.UserID, expiry.Expiry).Scan(&expiry.ID)
	return mapError(err)
}
