// Package memory keeps every repository in process memory. It backs the
// service tests and the STORAGE_DRIVER=memory mode of the server.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/model"
	"marketplace/internal/repository"
)

type edge struct {
	from uuid.UUID
	to   uuid.UUID
	at   time.Time
}

// data is the whole dataset. Maps hold values, never pointers, so a shallow
// copy of each map is an independent snapshot as long as slices inside the
// values are cloned on write.
type data struct {
	users      map[uuid.UUID]model.User
	userOrder  []uuid.UUID
	vouches    []edge // voucher -> vouchee
	categories map[uuid.UUID]model.Category
	posts      map[uuid.UUID]model.Post
	postOrder  []uuid.UUID
	postLikes  []edge // post -> user
	replies    map[uuid.UUID]model.Reply
	replyOrder []uuid.UUID
	replyLikes []edge // reply -> user
}

func newData() *data {
	return &data{
		users:      make(map[uuid.UUID]model.User),
		categories: make(map[uuid.UUID]model.Category),
		posts:      make(map[uuid.UUID]model.Post),
		replies:    make(map[uuid.UUID]model.Reply),
	}
}

func (d *data) clone() *data {
	c := &data{
		users:      make(map[uuid.UUID]model.User, len(d.users)),
		userOrder:  append([]uuid.UUID(nil), d.userOrder...),
		vouches:    append([]edge(nil), d.vouches...),
		categories: make(map[uuid.UUID]model.Category, len(d.categories)),
		posts:      make(map[uuid.UUID]model.Post, len(d.posts)),
		postOrder:  append([]uuid.UUID(nil), d.postOrder...),
		postLikes:  append([]edge(nil), d.postLikes...),
		replies:    make(map[uuid.UUID]model.Reply, len(d.replies)),
		replyOrder: append([]uuid.UUID(nil), d.replyOrder...),
		replyLikes: append([]edge(nil), d.replyLikes...),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.categories {
		c.categories[k] = v
	}
	for k, v := range d.posts {
		c.posts[k] = v
	}
	for k, v := range d.replies {
		c.replies[k] = v
	}
	return c
}

var _ repository.Store = (*Store)(nil)

// Store is an in-memory repository.Store. The zero value is not usable; call
// NewStore.
type Store struct {
	mu  sync.Mutex
	d   *data
	now func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{d: newData(), now: time.Now}
}

// session is the view handed to repositories. Outside a transaction every call
// takes the store lock; inside one the lock is already held.
type session struct {
	store *Store
	inTx  bool
}

func (s *session) read(fn func(d *data)) {
	if !s.inTx {
		s.store.mu.Lock()
		defer s.store.mu.Unlock()
	}
	fn(s.store.d)
}

func (s *session) write(fn func(d *data) error) error {
	var err error
	s.read(func(d *data) { err = fn(d) })
	return err
}

func (s *session) now() time.Time {
	return s.store.now()
}

func (s *Store) root() *session {
	return &session{store: s}
}

// Users returns the user repository.
func (s *Store) Users() repository.UserRepository {
	return &userRepository{s: s.root()}
}

// Categories returns the category repository.
func (s *Store) Categories() repository.CategoryRepository {
	return &categoryRepository{s: s.root()}
}

// Posts returns the post repository.
func (s *Store) Posts() repository.PostRepository {
	return &postRepository{s: s.root()}
}

// WithTransaction serialises fn against every other store call and restores
// the previous dataset if fn fails.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return runTx(ctx, &session{store: s, inTx: true}, fn)
}

func runTx(ctx context.Context, sess *session, fn func(ctx context.Context, tx repository.Store) error) error {
	snapshot := sess.store.d.clone()
	if err := fn(ctx, &txStore{s: sess}); err != nil {
		sess.store.d = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		sess.store.d = snapshot
		return err
	}
	return nil
}

type txStore struct {
	s *session
}

func (t *txStore) Users() repository.UserRepository { return &userRepository{s: t.s} }
func (t *txStore) Categories() repository.CategoryRepository { return &categoryRepository{s: t.s} }
func (t *txStore) Posts() repository.PostRepository { return &postRepository{s: t.s} }

// WithTransaction nests like a savepoint: only fn's own changes are undone.
func (t *txStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	return runTx(ctx, t.s, fn)
}

func hasEdge(edges []edge, from, to uuid.UUID) bool {
	for _, e := range edges {
		if e.from == from && e.to == to {
			return true
		}
	}
	return false
}

func removeEdge(edges []edge, from, to uuid.UUID) []edge {
	out := edges[:0:0]
	for _, e := range edges {
		if e.from == from && e.to == to {
			continue
		}
		out = append(out, e)
	}
	return out
}

func removeEdgesFrom(edges []edge, from uuid.UUID) []edge {
	out := edges[:0:0]
	for _, e := range edges {
		if e.from != from {
			out = append(out, e)
		}
	}
	return out
}

func targetsOf(edges []edge, from uuid.UUID) []uuid.UUID {
	out := []uuid.UUID{}
	for _, e := range edges {
		if e.from == from {
			out = append(out, e.to)
		}
	}
	return out
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
