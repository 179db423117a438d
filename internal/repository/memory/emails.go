package memory

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/account-service/internal/domain"
)

type emailAddressRepo struct{ s *handle }

func (r *emailAddressRepo) Create(_ context.Context, addr *domain.EmailAddress) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.users[addr.UserID]; !ok {
			return domain.ErrNotFound
		}
		if err := checkAddressConstraints(d, addr, ""); err != nil {
			return err
		}
		addr.ID = newID()
		d.addresses[addr.ID] = *addr
		return nil
	})
}

func (r *emailAddressRepo) Update(_ context.Context, addr *domain.EmailAddress) error {
	return r.s.write(func(d *state) error {
		existing, ok := d.addresses[addr.ID]
		if !ok {
			return domain.ErrNotFound
		}
		addr.UserID = existing.UserID
		if err := checkAddressConstraints(d, addr, addr.ID); err != nil {
			return err
		}
		d.addresses[addr.ID] = *addr
		return nil
	})
}

// checkAddressConstraints mirrors the unique indexes on email_addresses.
func checkAddressConstraints(d *state, addr *domain.EmailAddress, selfID string) error {
	for id, a := range d.addresses {
		if id == selfID || a.UserID != addr.UserID {
			continue
		}
		if domain.SameEmail(a.Email, addr.Email) {
			return domain.ErrAlreadyExists
		}
		if addr.Primary && a.Primary {
			return domain.ErrAlreadyExists
		}
	}
	return nil
}

func (r *emailAddressRepo) GetByID(_ context.Context, id string) (*domain.EmailAddress, error) {
	var out *domain.EmailAddress
	err := r.s.read(func(d *state) (err error) {
		a, ok := d.addresses[id]
		out, err = notFound(a, ok)
		return err
	})
	return out, err
}

func (r *emailAddressRepo) GetPrimary(_ context.Context, userID string) (*domain.EmailAddress, error) {
	addrs := r.filter(func(a domain.EmailAddress) bool { return a.UserID == userID && a.Primary })
	if len(addrs) == 0 {
		return nil, domain.ErrNotFound
	}
	return addrs[0], nil
}

func (r *emailAddressRepo) ListByUser(_ context.Context, userID string) ([]*domain.EmailAddress, error) {
	return r.filter(func(a domain.EmailAddress) bool { return a.UserID == userID }), nil
}

func (r *emailAddressRepo) ClearPrimary(_ context.Context, userID string) error {
	return r.s.write(func(d *state) error {
		for id, a := range d.addresses {
			if a.UserID == userID && a.Primary {
				a.Primary = false
				d.addresses[id] = a
			}
		}
		return nil
	})
}

func (r *emailAddressRepo) EmailInUse(_ context.Context, email, excludeID string) (bool, error) {
	addrs := r.filter(func(a domain.EmailAddress) bool {
		return a.ID != excludeID && domain.SameEmail(a.Email, email)
	})
	return len(addrs) > 0, nil
}

func (r *emailAddressRepo) ListVerifiedByEmail(_ context.Context, email string) ([]*domain.EmailAddress, error) {
	return r.filter(func(a domain.EmailAddress) bool {
		return a.Verified && domain.SameEmail(a.Email, email)
	}), nil
}

func (r *emailAddressRepo) filter(keep func(domain.EmailAddress) bool) []*domain.EmailAddress {
	var addrs []domain.EmailAddress
	_ = r.s.read(func(d *state) error {
		for _, a := range d.addresses {
			if keep(a) {
				addrs = append(addrs, a)
			}
		}
		return nil
	})
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].Primary != addrs[j].Primary {
			return addrs[i].Primary
		}
		return addrs[i].Email < addrs[j].Email
	})
	out := make([]*domain.EmailAddress, len(addrs))
	for i := range addrs {
		out[i] = &addrs[i]
	}
	return out
}

type confirmationRepo struct{ s *handle }

func (r *confirmationRepo) Create(_ context.Context, conf *domain.EmailConfirmation) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.addresses[conf.EmailAddressID]; !ok {
			return domain.ErrNotFound
		}
		for _, c := range d.confirmations {
			if c.Key == conf.Key {
				return domain.ErrAlreadyExists
			}
		}
		conf.ID = newID()
		d.confirmations[conf.ID] = *conf
		return nil
	})
}

func (r *confirmationRepo) GetByKey(_ context.Context, key string) (*domain.EmailConfirmation, error) {
	var out *domain.EmailConfirmation
	err := r.s.read(func(d *state) error {
		for _, c := range d.confirmations {
			if c.Key == key {
				out = &c
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *confirmationRepo) MarkSent(_ context.Context, id string, at time.Time) error {
	return r.s.write(func(d *state) error {
		c, ok := d.confirmations[id]
		if !ok {
			return domain.ErrNotFound
		}
		c.Sent = &at
		d.confirmations[id] = c
		return nil
	})
}

func (r *confirmationRepo) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	var n int
	err := r.s.write(func(d *state) error {
		for id, c := range d.confirmations {
			expired := (c.Sent != nil && c.Sent.Before(cutoff)) || (c.Sent == nil && c.CreatedAt.Before(cutoff))
			if expired {
				delete(d.confirmations, id)
				n++
			}
		}
		return nil
	})
	return n, err
}
