// Package memory provides an in-process account store. It backs the service
// when no database is configured and keeps service tests hermetic.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/repository"
)

type state struct {
	users         map[string]domain.User
	signupCodes   map[string]domain.SignupCode
	usages        map[string]domain.SignupCodeUsage
	addresses     map[string]domain.EmailAddress
	confirmations map[string]domain.EmailConfirmation
	history       map[string]domain.PasswordHistory
	expiries      map[string]domain.PasswordExpiry
	accounts      map[string]domain.Account
	deletions     map[string]domain.AccountDeletion
}

func newState() *state {
	return &state{
		users:         map[string]domain.User{},
		signupCodes:   map[string]domain.SignupCode{},
		usages:        map[string]domain.SignupCodeUsage{},
		addresses:     map[string]domain.EmailAddress{},
		confirmations: map[string]domain.EmailConfirmation{},
		history:       map[string]domain.PasswordHistory{},
		expiries:      map[string]domain.PasswordExpiry{},
		accounts:      map[string]domain.Account{},
		deletions:     map[string]domain.AccountDeletion{},
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		users:         cloneMap(s.users),
		signupCodes:   cloneMap(s.signupCodes),
		usages:        cloneMap(s.usages),
		addresses:     cloneMap(s.addresses),
		confirmations: cloneMap(s.confirmations),
		history:       cloneMap(s.history),
		expiries:      cloneMap(s.expiries),
		accounts:      cloneMap(s.accounts),
		deletions:     cloneMap(s.deletions),
	}
}

// Store is a repository.Store kept in memory. Transactions are serialized
// and roll back by restoring a snapshot taken when they began. Writes outside
// a transaction wait for any open one, so a rollback never discards them.
type Store struct {
	txMu    sync.Mutex
	mu      sync.RWMutex
	data    *state
	repos   repository.Repositories
	txRepos repository.Repositories
}

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{data: newState()}
	s.repos = s.repositories(&handle{store: s})
	s.txRepos = s.repositories(&handle{store: s, inTx: true})
	return s
}

func (s *Store) repositories(h *handle) repository.Repositories {
	return repository.Repositories{
		Users:          &userRepo{h},
		SignupCodes:    &signupCodeRepo{h},
		EmailAddresses: &emailAddressRepo{h},
		Confirmations:  &confirmationRepo{h},
		Passwords:      &passwordRepo{h},
		Accounts:       &accountRepo{h},
		Deletions:      &deletionRepo{h},
	}
}

// Repositories implements repository.Store.
func (s *Store) Repositories() repository.Repositories {
	return s.repos
}

// WithTx implements repository.Store.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) (err error) {
	if repos, ok := repository.TxFromContext(ctx); ok {
		return fn(ctx, repos)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()

	return fn(repository.ContextWithTx(ctx, s.txRepos), s.txRepos)
}

func (s *Store) restore(snapshot *state) {
	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
}

func (s *Store) read(fn func(d *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func (s *Store) write(fn func(d *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// handle is the view a repository has of the store. Writes through a handle
// outside a transaction hold txMu for their duration.
type handle struct {
	store *Store
	inTx  bool
}

func (h *handle) read(fn func(d *state) error) error {
	return h.store.read(fn)
}

func (h *handle) write(fn func(d *state) error) error {
	if !h.inTx {
		h.store.txMu.Lock()
		defer h.store.txMu.Unlock()
	}
	return h.store.write(fn)
}

func newID() string {
	return uuid.NewString()
}

func notFound[T any](v T, ok bool) (*T, error) {
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}
