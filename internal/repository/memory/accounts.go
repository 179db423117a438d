package memory

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/account-service/internal/domain"
)

type accountRepo struct{ s *handle }

func (r *accountRepo) Create(_ context.Context, account *domain.Account) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.users[account.UserID]; !ok {
			return domain.ErrNotFound
		}
		for _, a := range d.accounts {
			if a.UserID == account.UserID {
				return domain.ErrAlreadyExists
			}
		}
		account.ID = newID()
		d.accounts[account.ID] = *account
		return nil
	})
}

func (r *accountRepo) GetByUserID(_ context.Context, userID string) (*domain.Account, error) {
	var out *domain.Account
	err := r.s.read(func(d *state) error {
		for _, a := range d.accounts {
			if a.UserID == userID {
				out = &a
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *accountRepo) Update(_ context.Context, account *domain.Account) error {
	return r.s.write(func(d *state) error {
		existing, ok := d.accounts[account.ID]
		if !ok {
			return domain.ErrNotFound
		}
		existing.Timezone = account.Timezone
		existing.Language = account.Language
		d.accounts[account.ID] = existing
		return nil
	})
}

type deletionRepo struct{ s *handle }

func (r *deletionRepo) GetByUserID(_ context.Context, userID string) (*domain.AccountDeletion, error) {
	var out *domain.AccountDeletion
	err := r.s.read(func(d *state) error {
		for _, del := range d.deletions {
			if del.UserID != nil && *del.UserID == userID {
				out = &del
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *deletionRepo) Create(_ context.Context, del *domain.AccountDeletion) error {
	return r.s.write(func(d *state) error {
		if del.UserID != nil {
			for _, existing := range d.deletions {
				if existing.UserID != nil && *existing.UserID == *del.UserID {
					return domain.ErrAlreadyExists
				}
			}
		}
		del.ID = newID()
		d.deletions[del.ID] = *del
		return nil
	})
}

func (r *deletionRepo) Update(_ context.Context, del *domain.AccountDeletion) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.deletions[del.ID]; !ok {
			return domain.ErrNotFound
		}
		d.deletions[del.ID] = *del
		return nil
	})
}

func (r *deletionRepo) ListExpungeable(_ context.Context, cutoff time.Time) ([]*domain.AccountDeletion, error) {
	var found []domain.AccountDeletion
	_ = r.s.read(func(d *state) error {
		for _, del := range d.deletions {
			if del.UserID != nil && del.DateExpunged == nil && del.DateRequested.Before(cutoff) {
				found = append(found, del)
			}
		}
		return nil
	})
	sort.Slice(found, func(i, j int) bool { return found[i].DateRequested.Before(found[j].DateRequested) })
	out := make([]*domain.AccountDeletion, len(found))
	for i := range found {
		out[i] = &found[i]
	}
	return out, nil
}
