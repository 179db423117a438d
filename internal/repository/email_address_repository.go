package repository

import (
	"context"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/persistence"
)

// EmailAddressRepository persists user email addresses.
type EmailAddressRepository interface {
	Create(ctx context.Context, addr *domain.EmailAddress) error
	Update(ctx context.Context, addr *domain.EmailAddress) error
	GetByID(ctx context.Context, id string) (*domain.EmailAddress, error)
	// GetPrimary returns domain.ErrNotFound when the user has no primary address.
	GetPrimary(ctx context.Context, userID string) (*domain.EmailAddress, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.EmailAddress, error)
	// ClearPrimary demotes every primary address of the user.
	ClearPrimary(ctx context.Context, userID string) error
	// EmailInUse reports whether any address other than excludeID matches email.
	EmailInUse(ctx context.Context, email, excludeID string) (bool, error)
	ListVerifiedByEmail(ctx context.Context, email string) ([]*domain.EmailAddress, error)
}

type emailAddressRepository struct {
	db persistence.DBTX
}

// NewEmailAddressRepository returns a Postgres-backed implementation.
func NewEmailAddressRepository(db persistence.DBTX) EmailAddressRepository {
	return &emailAddressRepository{db: db}
}

const emailAddressColumns = `id, user_id, email, verified, is_primary`

func scanEmailAddress(row scanner) (*domain.EmailAddress, error) {
	var addr domain.EmailAddress
	if err := row.Scan(&addr.ID, &addr.UserID, &addr.Email, &addr.Verified, &addr.Primary); err != nil {
		return nil, mapError(err)
	}
	return &addr, nil
}

func (r *emailAddressRepository) Create(ctx context.Context, addr *domain.EmailAddress) error {
	const query = `
        INSERT INTO email_addresses (user_id, email, verified, is_primary)
        VALUES ($1, $2, $3, $4)
        RETURNING id`

	err := r.db.QueryRow(ctx, query, addr.UserID, addr.Email, addr.Verified, addr.Primary).Scan(&addr.ID)
	return mapError(err)
}

func (r *emailAddressRepository) Update(ctx context.Context, addr *domain.EmailAddress) error {
	const query = `UPDATE email_addresses SET email=$1, verified=$2, is_primary=$3 WHERE id=$4`
	return requireAffected(r.db.Exec(ctx, query, addr.Email, addr.Verified, addr.Primary, addr.ID))
}

func (r *emailAddressRepository) GetByID(ctx context.Context, id string) (*domain.EmailAddress, error) {
	query := `SELECT ` + emailAddressColumns + ` FROM email_addresses WHERE id=$1`
	return scanEmailAddress(r.db.QueryRow(ctx, query, id))
}

func (r *emailAddressRepository) GetPrimary(ctx context.Context, userID string) (*domain.EmailAddress, error) {
	query := `SELECT ` + emailAddressColumns + ` FROM email_addresses WHERE user_id=$1 AND is_primary`
	return scanEmailAddress(r.db.QueryRow(ctx, query, userID))
}

func (r *emailAddressRepository) ListByUser(ctx context.Context, userID string) ([]*domain.EmailAddress, error) {
	query := `SELECT ` + emailAddressColumns + ` FROM email_addresses WHERE user_id=$1 ORDER BY is_primary DESC, email`
	return r.list(ctx, query, userID)
}

func (r *emailAddressRepository) ClearPrimary(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `UPDATE email_addresses SET is_primary=FALSE WHERE user_id=$1 AND is_primary`, userID)
	return mapError(err)
}

func (r *emailAddressRepository) EmailInUse(ctx context.Context, email, excludeID string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM email_addresses
            WHERE LOWER(email) = LOWER($1) AND ($2 = '' OR id::text <> $2)
        )`

	var inUse bool
	if err := r.db.QueryRow(ctx, query, email, excludeID).Scan(&inUse); err != nil {
		return false, err
	}
	return inUse, nil
}

func (r *emailAddressRepository) ListVerifiedByEmail(ctx context.Context, email string) ([]*domain.EmailAddress, error) {
	query := `SELECT ` + emailAddressColumns + ` FROM email_addresses WHERE LOWER(email)=LOWER($1) AND verified`
	return r.list(ctx, query, email)
}

func (r *emailAddressRepository) list(ctx context.Context, query string, args ...any) ([]*domain.EmailAddress, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addrs []*domain.EmailAddress
	for rows.Next() {
		addr, err := scanEmailAddress(rows)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, rows.Err()
}
