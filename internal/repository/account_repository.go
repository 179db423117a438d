package repository

import (
	"context"
	"time"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/persistence"
)

// AccountRepository persists per-user preferences.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByUserID(ctx context.Context, userID string) (*domain.Account, error)
	Update(ctx context.Context, account *domain.Account) error
}

// AccountDeletionRepository persists deletion requests.
type AccountDeletionRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.AccountDeletion, error)
	Create(ctx context.Context, deletion *domain.AccountDeletion) error
	Update(ctx context.Context, deletion *domain.AccountDeletion) error
	// ListExpungeable returns unexpunged requests made before cutoff whose
	// user still exists.
	ListExpungeable(ctx context.Context, cutoff time.Time) ([]*domain.AccountDeletion, error)
}

type accountRepository struct {
	db persistence.DBTX
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(db persistence.DBTX) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (user_id, timezone, language)
        VALUES ($1, $2, $3)
        RETURNING id`

	err := r.db.QueryRow(ctx, query, account.UserID, account.Timezone, account.Language).Scan(&account.ID)
	return mapError(err)
}

func (r *accountRepository) GetByUserID(ctx context.Context, userID string) (*domain.Account, error) {
	const query = `SELECT id, user_id, timezone, language FROM accounts WHERE user_id=$1`

	var account domain.Account
	if err := r.db.QueryRow(ctx, query, userID).Scan(
		&account.ID,
		&account.UserID,
		&account.Timezone,
		&account.Language,
	); err != nil {
		return nil, mapError(err)
	}
	return &account, nil
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	const query = `UPDATE accounts SET timezone=$1, language=$2 WHERE id=$3`
	return requireAffected(r.db.Exec(ctx, query, account.Timezone, account.Language, account.ID))
}

type accountDeletionRepository struct {
	db persistence.DBTX
}

// NewAccountDeletionRepository returns a Postgres-backed implementation.
func NewAccountDeletionRepository(db persistence.DBTX) AccountDeletionRepository {
	return &accountDeletionRepository{db: db}
}

const accountDeletionColumns = `id, user_id, email, date_requested, date_expunged`

func scanAccountDeletion(row scanner) (*domain.AccountDeletion, error) {
	var d domain.AccountDeletion
	if err := row.Scan(&d.ID, &d.UserID, &d.Email, &d.DateRequested, &d.DateExpunged); err != nil {
		return nil, mapError(err)
	}
	return &d, nil
}

func (r *accountDeletionRepository) GetByUserID(ctx context.Context, userID string) (*domain.AccountDeletion, error) {
	query := `SELECT ` + accountDeletionColumns + ` FROM account_deletions WHERE user_id=$1`
	return scanAccountDeletion(r.db.QueryRow(ctx, query, userID))
}

func (r *accountDeletionRepository) Create(ctx context.Context, d *domain.AccountDeletion) error {
	const query = `
        INSERT INTO account_deletions (user_id, email, date_requested)
        VALUES ($1, $2, $3)
        RETURNING id`

	err := r.db.QueryRow(ctx, query, d.UserID, d.Email, d.DateRequested).Scan(&d.ID)
	return mapError(err)
}

func (r *accountDeletionRepository) Update(ctx context.Context, d *domain.AccountDeletion) error {
	const query = `UPDATE account_deletions SET user_id=$1, email=$2, date_expunged=$3 WHERE id=$4`
	return requireAffected(r.db.Exec(ctx, query, d.UserID, d.Email, d.DateExpunged, d.ID))
}

func (r *accountDeletionRepository) ListExpungeable(ctx context.Context, cutoff time.Time) ([]*domain.AccountDeletion, error) {
	query := `SELECT ` + accountDeletionColumns + ` FROM account_deletions
        WHERE date_requested < $1 AND date_expunged IS NULL AND user_id IS NOT NULL
        ORDER BY date_requested`

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AccountDeletion
	for rows.Next() {
		d, err := scanAccountDeletion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
