package memory

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/repository"
)

type resetEntry struct {
	userID    string
	expiresAt time.Time
}

// PasswordResetRepository keeps reset tokens in process memory.
type PasswordResetRepository struct {
	mu      sync.Mutex
	entries map[string]resetEntry
	now     func() time.Time
}

// NewPasswordResetRepository returns an empty token store.
func NewPasswordResetRepository() *PasswordResetRepository {
	return &PasswordResetRepository{entries: map[string]resetEntry{}, now: time.Now}
}

var _ repository.PasswordResetRepository = (*PasswordResetRepository)(nil)

func (r *PasswordResetRepository) Store(_ context.Context, token, userID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[repository.PasswordResetKey(token)] = resetEntry{userID: userID, expiresAt: r.now().Add(ttl)}
	return nil
}

func (r *PasswordResetRepository) Get(_ context.Context, token string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := repository.PasswordResetKey(token)
	entry, ok := r.entries[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	if !r.now().Before(entry.expiresAt) {
		delete(r.entries, key)
		return "", domain.ErrNotFound
	}
	return entry.userID, nil
}

func (r *PasswordResetRepository) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, repository.PasswordResetKey(token))
	return nil
}
