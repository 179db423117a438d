package repository

import (
	"context"
	"time"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/persistence"
)

// SignupCodeRepository persists signup codes and their usages.
type SignupCodeRepository interface {
	Create(ctx context.Context, code *domain.SignupCode) error
	GetByCode(ctx context.Context, code string) (*domain.SignupCode, error)
	// GetByCodeForUpdate locks the row until the surrounding transaction ends.
	GetByCodeForUpdate(ctx context.Context, code string) (*domain.SignupCode, error)
	Exists(ctx context.Context, code, email string) (bool, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	AddUsage(ctx context.Context, usage *domain.SignupCodeUsage) error
	// RecalculateUseCount stores the number of usage rows as use_count.
	RecalculateUseCount(ctx context.Context, id string) (int, error)
}

type signupCodeRepository struct {
	db persistence.DBTX
}

// NewSignupCodeRepository returns a Postgres-backed implementation.
func NewSignupCodeRepository(db persistence.DBTX) SignupCodeRepository {
	return &signupCodeRepository{db: db}
}

const signupCodeColumns = `id, code, max_uses, use_count, expiry, email, inviter_id, notes, sent, created_at`

func scanSignupCode(row scanner) (*domain.SignupCode, error) {
	var sc domain.SignupCode
	if err := row.Scan(
		&sc.ID,
		&sc.Code,
		&sc.MaxUses,
		&sc.UseCount,
		&sc.Expiry,
		&sc.Email,
		&sc.InviterID,
		&sc.Notes,
		&sc.Sent,
		&sc.CreatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &sc, nil
}

func (r *signupCodeRepository) Create(ctx context.Context, sc *domain.SignupCode) error {
	const query = `
        INSERT INTO signup_codes (code, max_uses, use_count, expiry, email, inviter_id, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		sc.Code,
		sc.MaxUses,
		sc.UseCount,
		sc.Expiry,
		sc.Email,
		sc.InviterID,
		sc.Notes,
	).Scan(&sc.ID, &sc.CreatedAt)
	return mapError(err)
}

func (r *signupCodeRepository) GetByCode(ctx context.Context, code string) (*domain.SignupCode, error) {
	query := `SELECT ` + signupCodeColumns + ` FROM signup_codes WHERE code=$1`
	return scanSignupCode(r.db.QueryRow(ctx, query, code))
}

func (r *signupCodeRepository) GetByCodeForUpdate(ctx context.Context, code string) (*domain.SignupCode, error) {
	query := `SELECT ` + signupCodeColumns + ` FROM signup_codes WHERE code=$1 FOR UPDATE`
	return scanSignupCode(r.db.QueryRow(ctx, query, code))
}

func (r *signupCodeRepository) Exists(ctx context.Context, code, email string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM signup_codes
            WHERE ($1 <> '' AND code = $1) OR ($2 <> '' AND LOWER(email) = LOWER($2))
        )`

	var exists bool
	if err := r.db.QueryRow(ctx, query, code, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *signupCodeRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	return requireAffected(r.db.Exec(ctx, `UPDATE signup_codes SET sent=$1 WHERE id=$2`, at, id))
}

func (r *signupCodeRepository) AddUsage(ctx context.Context, usage *domain.SignupCodeUsage) error {
	const query = `
        INSERT INTO signup_code_usages (signup_code_id, user_id, used_at)
        VALUES ($1, $2, $3)
        RETURNING id`

	err := r.db.QueryRow(ctx, query, usage.SignupCodeID, usage.UserID, usage.Timestamp).Scan(&usage.ID)
	return mapError(err)
}

func (r *signupCodeRepository) RecalculateUseCount(ctx context.Context, id string) (int, error) {
	const query = `
        UPDATE signup_codes
        SET use_count = (SELECT COUNT(*) FROM signup_code_usages WHERE signup_code_id = $1)
        WHERE id = $1
        RETURNING use_count`

	var count int
	if err := r.db.QueryRow(ctx, query, id).Scan(&count); err != nil {
		return 0, mapError(err)
	}
	return count, nil
}
