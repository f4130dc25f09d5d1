package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/model"
	"marketplace/internal/repository"
)

type userRepository struct {
	s *session
}

func cloneUser(u model.User) model.User {
	if u.Profile.CustomURL != nil {
		v := *u.Profile.CustomURL
		u.Profile.CustomURL = &v
	}
	return u
}

// conflicts reports whether u collides with any other user on a unique column.
func conflicts(d *data, u *model.User) bool {
	for id, other := range d.users {
		if id == u.ID {
			continue
		}
		if other.Username == u.Username || other.Email == u.Email {
			return true
		}
		if u.Profile.CustomURL != nil && other.Profile.CustomURL != nil &&
			*u.Profile.CustomURL == *other.Profile.CustomURL {
			return true
		}
	}
	return false
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.s.write(func(d *data) error {
		user.PrepareForCreate(r.s.now())
		if _, ok := d.users[user.ID]; ok || conflicts(d, user) {
			return repository.ErrDuplicateKey
		}
		d.users[user.ID] = cloneUser(*user)
		d.userOrder = append(d.userOrder, user.ID)
		return nil
	})
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *model.User) error {
	return r.s.write(func(d *data) error {
		stored, ok := d.users[user.ID]
		if !ok {
			return repository.ErrNotFound
		}
		stored.Email = user.Email
		stored.Profile = user.Profile
		stored.UpdatedAt = r.s.now()
		if conflicts(d, &stored) {
			return repository.ErrDuplicateKey
		}
		user.UpdatedAt = stored.UpdatedAt
		d.users[user.ID] = cloneUser(stored)
		return nil
	})
}

func (r *userRepository) find(match func(u *model.User) bool) (*model.User, error) {
	var found *model.User
	r.s.read(func(d *data) {
		for _, id := range d.userOrder {
			u := d.users[id]
			if match(&u) {
				c := cloneUser(u)
				found = &c
				return
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ID == id })
}

func (r *userRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.FindByID(ctx, id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Username == username })
}

func (r *userRepository) FindByCustomURL(ctx context.Context, customURL string) (*model.User, error) {
	return r.find(func(u *model.User) bool {
		return u.Profile.CustomURL != nil && *u.Profile.CustomURL == customURL
	})
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	r.s.read(func(d *data) {
		for i := len(d.userOrder) - 1; i >= 0; i-- {
			users = append(users, cloneUser(d.users[d.userOrder[i]]))
		}
	})
	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

// update applies fn to a stored user. Missing users are ignored, like an
// UPDATE matching no rows.
func (r *userRepository) update(id uuid.UUID, fn func(u *model.User)) {
	_ = r.s.write(func(d *data) error {
		if u, ok := d.users[id]; ok {
			fn(&u)
			d.users[id] = u
		}
		return nil
	})
}

func (r *userRepository) UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	r.update(id, func(u *model.User) { u.Role = role })
	return nil
}

func (r *userRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	r.update(id, func(u *model.User) { u.IsActive = active })
	return nil
}

func (r *userRepository) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.update(id, func(u *model.User) { u.LastActive = at })
	return nil
}

func (r *userRepository) IncrementReputation(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	var (
		value int
		found bool
	)
	r.update(id, func(u *model.User) {
		u.Reputation += delta
		value, found = u.Reputation, true
	})
	if !found {
		return 0, repository.ErrNotFound
	}
	return value, nil
}

func (r *userRepository) IncrementPostCount(ctx context.Context, id uuid.UUID, delta int) error {
	r.update(id, func(u *model.User) { u.PostCount += delta })
	return nil
}

func (r *userRepository) HasVouch(ctx context.Context, voucherID, voucheeID uuid.UUID) (bool, error) {
	var ok bool
	r.s.read(func(d *data) { ok = hasEdge(d.vouches, voucherID, voucheeID) })
	return ok, nil
}

func (r *userRepository) AddVouch(ctx context.Context, voucherID, voucheeID uuid.UUID) error {
	return r.s.write(func(d *data) error {
		if hasEdge(d.vouches, voucherID, voucheeID) {
			return repository.ErrDuplicateKey
		}
		d.vouches = append(d.vouches, edge{from: voucherID, to: voucheeID, at: r.s.now()})
		return nil
	})
}

func (r *userRepository) RemoveVouch(ctx context.Context, voucherID, voucheeID uuid.UUID) error {
	return r.s.write(func(d *data) error {
		d.vouches = removeEdge(d.vouches, voucherID, voucheeID)
		return nil
	})
}

func (r *userRepository) Vouches(ctx context.Context, userID uuid.UUID) (*model.VouchSet, error) {
	set := &model.VouchSet{Given: []uuid.UUID{}, Received: []uuid.UUID{}}
	r.s.read(func(d *data) {
		for _, e := range d.vouches {
			if e.from == userID {
				set.Given = append(set.Given, e.to)
			}
			if e.to == userID {
				set.Received = append(set.Received, e.from)
			}
		}
	})
	return set, nil
}

func (r *userRepository) count(match func(u *model.User) bool) int64 {
	var n int64
	r.s.read(func(d *data) {
		for _, u := range d.users {
			if match(&u) {
				n++
			}
		}
	})
	return n
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	return r.count(func(*model.User) bool { return true }), nil
}

func (r *userRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	return r.count(func(u *model.User) bool { return !u.CreatedAt.Before(since) }), nil
}

func (r *userRepository) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	return r.count(func(u *model.User) bool { return !u.LastActive.Before(since) }), nil
}
