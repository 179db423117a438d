package memory

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/account-service/internal/domain"
)

type signupCodeRepo struct{ s *handle }

func (r *signupCodeRepo) Create(_ context.Context, sc *domain.SignupCode) error {
	return r.s.write(func(d *state) error {
		for _, c := range d.signupCodes {
			if c.Code == sc.Code {
				return domain.ErrAlreadyExists
			}
		}
		sc.ID = newID()
		sc.CreatedAt = time.Now().UTC()
		d.signupCodes[sc.ID] = *sc
		return nil
	})
}

func (r *signupCodeRepo) GetByCode(_ context.Context, code string) (*domain.SignupCode, error) {
	var out *domain.SignupCode
	err := r.s.read(func(d *state) error {
		for _, c := range d.signupCodes {
			if c.Code == code {
				out = &c
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

// GetByCodeForUpdate needs no extra locking: transactions are serialized.
func (r *signupCodeRepo) GetByCodeForUpdate(ctx context.Context, code string) (*domain.SignupCode, error) {
	return r.GetByCode(ctx, code)
}

func (r *signupCodeRepo) Exists(_ context.Context, code, email string) (bool, error) {
	var found bool
	_ = r.s.read(func(d *state) error {
		for _, c := range d.signupCodes {
			if (code != "" && c.Code == code) || (email != "" && strings.EqualFold(c.Email, email)) {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, nil
}

func (r *signupCodeRepo) MarkSent(_ context.Context, id string, at time.Time) error {
	return r.s.write(func(d *state) error {
		c, ok := d.signupCodes[id]
		if !ok {
			return domain.ErrNotFound
		}
		c.Sent = &at
		d.signupCodes[id] = c
		return nil
	})
}

func (r *signupCodeRepo) AddUsage(_ context.Context, usage *domain.SignupCodeUsage) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.signupCodes[usage.SignupCodeID]; !ok {
			return domain.ErrNotFound
		}
		if _, ok := d.users[usage.UserID]; !ok {
			return domain.ErrNotFound
		}
		usage.ID = newID()
		d.usages[usage.ID] = *usage
		return nil
	})
}

func (r *signupCodeRepo) RecalculateUseCount(_ context.Context, id string) (int, error) {
	var count int
	err := r.s.write(func(d *state) error {
		c, ok := d.signupCodes[id]
		if !ok {
			return domain.ErrNotFound
		}
		for _, u := range d.usages {
			if u.SignupCodeID == id {
				count++
			}
		}
		c.UseCount = count
		d.signupCodes[id] = c
		return nil
	})
	return count, err
}
