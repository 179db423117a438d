package memory

import (
	"context"

	"github.com/spec-kit/account-service/internal/domain"
)

type passwordRepo struct{ s *handle }

func (r *passwordRepo) AddHistory(_ context.Context, entry *domain.PasswordHistory) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.users[entry.UserID]; !ok {
			return domain.ErrNotFound
		}
		entry.ID = newID()
		d.history[entry.ID] = *entry
		return nil
	})
}

func (r *passwordRepo) LatestHistory(_ context.Context, userID string) (*domain.PasswordHistory, error) {
	var latest *domain.PasswordHistory
	_ = r.s.read(func(d *state) error {
		for _, h := range d.history {
			if h.UserID != userID {
				continue
			}
			if latest == nil || h.Timestamp.After(latest.Timestamp) {
				entry := h
				latest = &entry
			}
		}
		return nil
	})
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

func (r *passwordRepo) GetExpiry(_ context.Context, userID string) (*domain.PasswordExpiry, error) {
	var out *domain.PasswordExpiry
	err := r.s.read(func(d *state) error {
		for _, e := range d.expiries {
			if e.UserID == userID {
				out = &e
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *passwordRepo) UpsertExpiry(_ context.Context, expiry *domain.PasswordExpiry) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.users[expiry.UserID]; !ok {
			return domain.ErrNotFound
		}
		for id, e := range d.expiries {
			if e.UserID == expiry.UserID {
				e.Expiry = expiry.Expiry
				d.expiries[id] = e
				expiry.ID = id
				return nil
			}
		}
		expiry.ID = newID()
		d.expiries[expiry.ID] = *expiry
		return nil
	})
}
