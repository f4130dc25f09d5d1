package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/model"
	"marketplace/internal/repository"
)

type postRepository struct {
	s *session
}

func clonePost(p model.Post) model.Post {
	p.Tags = append([]string{}, p.Tags...)
	if p.CategoryID != nil {
		id := *p.CategoryID
		p.CategoryID = &id
	}
	p.Author, p.Category, p.Replies, p.Likes = nil, nil, nil, nil
	return p
}

// hydrate fills the relations the GORM repository preloads.
func hydrate(d *data, p model.Post) model.Post {
	p = clonePost(p)
	if u, ok := d.users[p.AuthorID]; ok {
		u = cloneUser(u)
		p.Author = &u
	}
	if p.CategoryID != nil {
		if c, ok := d.categories[*p.CategoryID]; ok {
			p.Category = &c
		}
	}
	p.Likes = targetsOf(d.postLikes, p.ID)
	return p
}

func hydrateReply(d *data, r model.Reply) model.Reply {
	r.User = nil
	if u, ok := d.users[r.UserID]; ok {
		u = cloneUser(u)
		r.User = &u
	}
	r.Likes = targetsOf(d.replyLikes, r.ID)
	return r
}

func repliesOf(d *data, postID uuid.UUID) []model.Reply {
	replies := []model.Reply{}
	for _, id := range d.replyOrder {
		if r := d.replies[id]; r.PostID == postID {
			replies = append(replies, hydrateReply(d, r))
		}
	}
	sort.SliceStable(replies, func(i, j int) bool { return replies[i].CreatedAt.Before(replies[j].CreatedAt) })
	return replies
}

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.s.write(func(d *data) error {
		post.NormalizePrice()
		if post.ID == uuid.Nil {
			post.ID = uuid.New()
		}
		if _, ok := d.posts[post.ID]; ok {
			return repository.ErrDuplicateKey
		}
		now := r.s.now()
		if post.CreatedAt.IsZero() {
			post.CreatedAt = now
		}
		post.UpdatedAt = now
		d.posts[post.ID] = clonePost(*post)
		d.postOrder = append(d.postOrder, post.ID)
		return nil
	})
}

func (r *postRepository) Update(ctx context.Context, post *model.Post) error {
	return r.s.write(func(d *data) error {
		stored, ok := d.posts[post.ID]
		if !ok {
			return nil
		}
		post.NormalizePrice()
		post.UpdatedAt = r.s.now()
		stored.Title = post.Title
		stored.Content = post.Content
		stored.CategoryID = post.CategoryID
		stored.Tags = post.Tags
		stored.Price = post.Price
		stored.IsFree = post.IsFree
		stored.IsSold = post.IsSold
		stored.IsPinned = post.IsPinned
		stored.UpdatedAt = post.UpdatedAt
		d.posts[post.ID] = clonePost(stored)
		return nil
	})
}

func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(func(d *data) error {
		if _, ok := d.posts[id]; !ok {
			return repository.ErrNotFound
		}
		for _, rid := range d.replyOrder {
			if d.replies[rid].PostID == id {
				d.replyLikes = removeEdgesFrom(d.replyLikes, rid)
				delete(d.replies, rid)
				d.replyOrder = removeID(d.replyOrder, rid)
			}
		}
		d.postLikes = removeEdgesFrom(d.postLikes, id)
		delete(d.posts, id)
		d.postOrder = removeID(d.postOrder, id)
		return nil
	})
}

func (r *postRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var (
		post  model.Post
		found bool
	)
	r.s.read(func(d *data) {
		p, ok := d.posts[id]
		if !ok {
			return
		}
		post, found = hydrate(d, p), true
		post.Replies = repliesOf(d, id)
	})
	if !found {
		return nil, repository.ErrNotFound
	}
	return &post, nil
}

func (r *postRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var (
		post  model.Post
		found bool
	)
	r.s.read(func(d *data) {
		p, ok := d.posts[id]
		if ok {
			post, found = clonePost(p), true
		}
	})
	if !found {
		return nil, repository.ErrNotFound
	}
	return &post, nil
}

func matches(p *model.Post, filter repository.PostFilter) bool {
	if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
		return false
	}
	if filter.AuthorID != nil && p.AuthorID != *filter.AuthorID {
		return false
	}
	term := strings.TrimSpace(filter.Query)
	if term == "" {
		return true
	}
	lower := strings.ToLower(term)
	if strings.Contains(strings.ToLower(p.Title), lower) || strings.Contains(strings.ToLower(p.Content), lower) {
		return true
	}
	for _, tag := range p.Tags {
		if tag == term {
			return true
		}
	}
	return false
}

func (r *postRepository) List(ctx context.Context, filter repository.PostFilter) ([]model.Post, error) {
	posts := []model.Post{}
	r.s.read(func(d *data) {
		for i := len(d.postOrder) - 1; i >= 0; i-- {
			p := d.posts[d.postOrder[i]]
			if matches(&p, filter) {
				posts = append(posts, hydrate(d, p))
			}
		}
	})

	newer := func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) }
	var less func(i, j int) bool
	switch filter.Sort {
	case repository.SortPopular:
		less = func(i, j int) bool {
			if posts[i].Views != posts[j].Views {
				return posts[i].Views > posts[j].Views
			}
			return newer(i, j)
		}
	case repository.SortPriceLow:
		less = func(i, j int) bool {
			if !posts[i].Price.Equal(posts[j].Price) {
				return posts[i].Price.LessThan(posts[j].Price)
			}
			return newer(i, j)
		}
	case repository.SortPriceHigh:
		less = func(i, j int) bool {
			if !posts[i].Price.Equal(posts[j].Price) {
				return posts[i].Price.GreaterThan(posts[j].Price)
			}
			return newer(i, j)
		}
	default:
		less = newer
	}
	sort.SliceStable(posts, less)
	return posts, nil
}

func (r *postRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.s.write(func(d *data) error {
		if p, ok := d.posts[id]; ok {
			p.Views++
			d.posts[id] = p
		}
		return nil
	})
}

func (r *postRepository) DetachCategory(ctx context.Context, categoryID uuid.UUID) error {
	return r.s.write(func(d *data) error {
		for id, p := range d.posts {
			if p.CategoryID != nil && *p.CategoryID == categoryID {
				p.CategoryID = nil
				d.posts[id] = p
			}
		}
		return nil
	})
}

func (r *postRepository) HasLike(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	var ok bool
	r.s.read(func(d *data) { ok = hasEdge(d.postLikes, postID, userID) })
	return ok, nil
}

func (r *postRepository) AddLike(ctx context.Context, postID, userID uuid.UUID) error {
	return r.s.write(func(d *data) error {
		if hasEdge(d.postLikes, postID, userID) {
			return repository.ErrDuplicateKey
		}
		d.postLikes = append(d.postLikes, edge{from: postID, to: userID, at: r.s.now()})
		return nil
	})
}

func (r *postRepository) RemoveLike(ctx context.Context, postID, userID uuid.UUID) error {
	return r.s.write(func(d *data) error {
		d.postLikes = removeEdge(d.postLikes, postID, userID)
		return nil
	})
}

func (r *postRepository) Likes(ctx context.Context, postID uuid.UUID) ([]uuid.UUID, error) {
	var likes []uuid.UUID
	r.s.read(func(d *data) { likes = targetsOf(d.postLikes, postID) })
	return likes, nil
}

func (r *postRepository) CreateReply(ctx context.Context, reply *model.Reply) error {
	return r.s.write(func(d *data) error {
		if reply.ID == uuid.Nil {
			reply.ID = uuid.New()
		}
		if _, ok := d.replies[reply.ID]; ok {
			return repository.ErrDuplicateKey
		}
		if reply.CreatedAt.IsZero() {
			reply.CreatedAt = r.s.now()
		}
		stored := *reply
		stored.User, stored.Likes = nil, nil
		d.replies[reply.ID] = stored
		d.replyOrder = append(d.replyOrder, reply.ID)
		return nil
	})
}

func (r *postRepository) FindReply(ctx context.Context, postID, replyID uuid.UUID) (*model.Reply, error) {
	var (
		reply model.Reply
		found bool
	)
	r.s.read(func(d *data) {
		rp, ok := d.replies[replyID]
		if ok && rp.PostID == postID {
			reply, found = rp, true
		}
	})
	if !found {
		return nil, repository.ErrNotFound
	}
	return &reply, nil
}

func (r *postRepository) Replies(ctx context.Context, postID uuid.UUID) ([]model.Reply, error) {
	var replies []model.Reply
	r.s.read(func(d *data) { replies = repliesOf(d, postID) })
	return replies, nil
}

func (r *postRepository) HasReplyLike(ctx context.Context, replyID, userID uuid.UUID) (bool, error) {
	var ok bool
	r.s.read(func(d *data) { ok = hasEdge(d.replyLikes, replyID, userID) })
	return ok, nil
}

func (r *postRepository) AddReplyLike(ctx context.Context, replyID, userID uuid.UUID) error {
	return r.s.write(func(d *data) error {
		if hasEdge(d.replyLikes, replyID, userID) {
			return repository.ErrDuplicateKey
		}
		d.replyLikes = append(d.replyLikes, edge{from: replyID, to: userID, at: r.s.now()})
		return nil
	})
}

func (r *postRepository) RemoveReplyLike(ctx context.Context, replyID, userID uuid.UUID) error {
	return r.s.write(func(d *data) error {
		d.replyLikes = removeEdge(d.replyLikes, replyID, userID)
		return nil
	})
}

func (r *postRepository) ReplyLikes(ctx context.Context, replyID uuid.UUID) ([]uuid.UUID, error) {
	var likes []uuid.UUID
	r.s.read(func(d *data) { likes = targetsOf(d.replyLikes, replyID) })
	return likes, nil
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	r.s.read(func(d *data) { n = int64(len(d.posts)) })
	return n, nil
}

func (r *postRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	r.s.read(func(d *data) {
		for _, p := range d.posts {
			if !p.CreatedAt.Before(since) {
				n++
			}
		}
	})
	return n, nil
}

func (r *postRepository) CountReplies(ctx context.Context) (int64, error) {
	var n int64
	r.s.read(func(d *data) { n = int64(len(d.replies)) })
	return n, nil
}
