package repository

import (
	"context"

	"github.com/spec-kit/account-service/internal/persistence"
)

// Repositories groups every account repository bound to one handle, either
// the pool or an open transaction.
type Repositories struct {
	Users          UserRepository
	SignupCodes    SignupCodeRepository
	EmailAddresses EmailAddressRepository
	Confirmations  EmailConfirmationRepository
	Passwords      PasswordRepository
	Accounts       AccountRepository
	Deletions      AccountDeletionRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repositories() Repositories
	// WithTx runs fn inside a transaction. Calls nested inside fn (detected
	// through ctx) join the outer transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

type txKey struct{}

// ContextWithTx marks ctx as running inside a transaction bound to repos.
func ContextWithTx(ctx context.Context, repos Repositories) context.Context {
	return context.WithValue(ctx, txKey{}, repos)
}

// TxFromContext returns the repositories of the enclosing transaction, if any.
func TxFromContext(ctx context.Context) (Repositories, bool) {
	repos, ok := ctx.Value(txKey{}).(Repositories)
	return repos, ok
}

// NewRepositories binds every Postgres repository to db.
func NewRepositories(db persistence.DBTX) Repositories {
	return Repositories{
		Users:          NewUserRepository(db),
		SignupCodes:    NewSignupCodeRepository(db),
		EmailAddresses: NewEmailAddressRepository(db),
		Confirmations:  NewEmailConfirmationRepository(db),
		Passwords:      NewPasswordRepository(db),
		Accounts:       NewAccountRepository(db),
		Deletions:      NewAccountDeletionRepository(db),
	}
}

type postgresStore struct {
	db    persistence.TxBeginner
	repos Repositories
}

// NewPostgresStore returns a Store backed by a pgx pool.
func NewPostgresStore(db persistence.TxBeginner) Store {
	return &postgresStore{db: db, repos: NewRepositories(db)}
}

func (s *postgresStore) Repositories() Repositories {
	return s.repos
}

func (s *postgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	if repos, ok := TxFromContext(ctx); ok {
		return fn(ctx, repos)
	}
	return persistence.WithTx(ctx, s.db, func(ctx context.Context, tx persistence.DBTX) error {
		repos := NewRepositories(tx)
		return fn(ContextWithTx(ctx, repos), repos)
	})
}
