package memory

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/account-service/internal/domain"
)

type userRepo struct{ s *handle }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	return r.s.write(func(d *state) error {
		for _, u := range d.users {
			if u.Username == user.Username {
				return domain.ErrAlreadyExists
			}
		}
		now := time.Now().UTC()
		user.ID = newID()
		user.CreatedAt = now
		user.UpdatedAt = now
		d.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	return r.s.write(func(d *state) error {
		existing, ok := d.users[user.ID]
		if !ok {
			return domain.ErrNotFound
		}
		for id, u := range d.users {
			if id != user.ID && u.Username == user.Username {
				return domain.ErrAlreadyExists
			}
		}
		user.CreatedAt = existing.CreatedAt
		user.UpdatedAt = time.Now().UTC()
		d.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.s.read(func(d *state) (err error) {
		u, ok := d.users[id]
		out, err = notFound(u, ok)
		return err
	})
	return out, err
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return domain.SameEmail(u.Email, email) })
}

func (r *userRepo) find(match func(domain.User) bool) (*domain.User, error) {
	var found []domain.User
	_ = r.s.read(func(d *state) error {
		for _, u := range d.users {
			if match(u) {
				found = append(found, u)
			}
		}
		return nil
	})
	if len(found) == 0 {
		return nil, domain.ErrNotFound
	}
	sortUsers(found)
	return &found[0], nil
}

func (r *userRepo) SetActive(_ context.Context, id string, active bool) error {
	return r.modify(id, func(u *domain.User) { u.Active = active })
}

func (r *userRepo) SetPassword(_ context.Context, id, hash string) error {
	return r.modify(id, func(u *domain.User) { u.PasswordHash = hash })
}

func (r *userRepo) modify(id string, fn func(u *domain.User)) error {
	return r.s.write(func(d *state) error {
		u, ok := d.users[id]
		if !ok {
			return domain.ErrNotFound
		}
		fn(&u)
		u.UpdatedAt = time.Now().UTC()
		d.users[id] = u
		return nil
	})
}

// Delete removes the user and applies the same cascade and set-null rules
// as the relational schema.
func (r *userRepo) Delete(_ context.Context, id string) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.users[id]; !ok {
			return domain.ErrNotFound
		}
		delete(d.users, id)

		for aid, a := range d.addresses {
			if a.UserID != id {
				continue
			}
			delete(d.addresses, aid)
			for cid, c := range d.confirmations {
				if c.EmailAddressID == aid {
					delete(d.confirmations, cid)
				}
			}
		}
		for uid, u := range d.usages {
			if u.UserID == id {
				delete(d.usages, uid)
			}
		}
		for hid, h := range d.history {
			if h.UserID == id {
				delete(d.history, hid)
			}
		}
		for eid, e := range d.expiries {
			if e.UserID == id {
				delete(d.expiries, eid)
			}
		}
		for aid, a := range d.accounts {
			if a.UserID == id {
				delete(d.accounts, aid)
			}
		}
		for cid, c := range d.signupCodes {
			if c.InviterID != nil && *c.InviterID == id {
				c.InviterID = nil
				d.signupCodes[cid] = c
			}
		}
		for did, del := range d.deletions {
			if del.UserID != nil && *del.UserID == id {
				del.UserID = nil
				d.deletions[did] = del
			}
		}
		return nil
	})
}

func (r *userRepo) List(_ context.Context) ([]*domain.User, error) {
	return r.list(func(*state, domain.User) bool { return true }), nil
}

func (r *userRepo) ListWithoutPasswordHistory(_ context.Context) ([]*domain.User, error) {
	return r.list(func(d *state, u domain.User) bool {
		for _, h := range d.history {
			if h.UserID == u.ID {
				return false
			}
		}
		return true
	}), nil
}

func (r *userRepo) list(keep func(*state, domain.User) bool) []*domain.User {
	var users []domain.User
	_ = r.s.read(func(d *state) error {
		for _, u := range d.users {
			if keep(d, u) {
				users = append(users, u)
			}
		}
		return nil
	})
	sortUsers(users)
	out := make([]*domain.User, len(users))
	for i := range users {
		out[i] = &users[i]
	}
	return out
}

func sortUsers(users []domain.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Username < users[j].Username
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
}
