package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"marketplace/internal/auth"
	"marketplace/internal/errors"
	"marketplace/internal/metrics"
	"marketplace/internal/model"
	"marketplace/internal/repository"
)

const (
	maxTitleLength = 200
	maxReplyLength = 5000
)

// CreatePostInput holds the fields of a new post.
type CreatePostInput struct {
	Title      string
	Content    string
	CategoryID uuid.UUID
	Tags       []string
	Price      decimal.Decimal
	IsFree     bool
}

// UpdatePostInput holds post edits. Empty strings and nil pointers keep the
// current value.
type UpdatePostInput struct {
	Title      string
	Content    string
	CategoryID *uuid.UUID
	Tags       []string
	Price      *decimal.Decimal
	IsFree     *bool
	IsSold     *bool
	// IsPinned is honoured for moderators and above only.
	IsPinned *bool
}

// PostService handles posts, replies and likes.
type PostService interface {
	List(ctx context.Context, filter repository.PostFilter) ([]model.Post, error)
	// Get returns a post with its replies and counts the view.
	Get(ctx context.Context, id uuid.UUID) (*model.Post, error)
	Create(ctx context.Context, p auth.Principal, in CreatePostInput) (*model.Post, error)
	Update(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdatePostInput) (*model.Post, error)
	Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error
	// ToggleLike flips the caller's like on a post and returns the likes.
	ToggleLike(ctx context.Context, p auth.Principal, postID uuid.UUID) ([]uuid.UUID, error)
	// AddReply appends a reply and returns all replies of the post.
	AddReply(ctx context.Context, p auth.Principal, postID uuid.UUID, content string) ([]model.Reply, error)
	// ToggleReplyLike flips the caller's like on a reply and returns its likes.
	ToggleReplyLike(ctx context.Context, p auth.Principal, postID, replyID uuid.UUID) ([]uuid.UUID, error)
}

type postService struct {
	store repository.Store
	log   logrus.FieldLogger
}

// NewPostService creates a new post service.
func NewPostService(store repository.Store, log logrus.FieldLogger) PostService {
	return &postService{store: store, log: log}
}

func (s *postService) List(ctx context.Context, filter repository.PostFilter) ([]model.Post, error) {
	posts, err := s.store.Posts().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (s *postService) Get(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	posts := s.store.Posts()
	if err := posts.IncrementViews(ctx, id); err != nil {
		return nil, fmt.Errorf("increment views: %w", err)
	}
	post, err := posts.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrPostNotFound)
	}
	return post, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func checkPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return invalidInput("price must not be negative")
	}
	return nil
}

// Create stores a new post and bumps the author's post count atomically.
func (s *postService) Create(ctx context.Context, p auth.Principal, in CreatePostInput) (*model.Post, error) {
	if !p.Authenticated() {
		return nil, errors.ErrUnauthenticated
	}
	title := strings.TrimSpace(in.Title)
	if title == "" || utf8.RuneCountInString(title) > maxTitleLength {
		return nil, invalidInput("title must be 1-%d characters", maxTitleLength)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, invalidInput("content is required")
	}
	if err := checkPrice(in.Price); err != nil {
		return nil, err
	}

	categoryID := in.CategoryID
	post := &model.Post{
		Title:      title,
		Content:    in.Content,
		AuthorID:   p.UserID,
		CategoryID: &categoryID,
		Tags:       cleanTags(in.Tags),
		Price:      in.Price,
		IsFree:     in.IsFree,
	}

	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Categories().FindByID(ctx, categoryID); err != nil {
			return notFound(err, errors.ErrCategoryNotFound)
		}
		if err := tx.Posts().Create(ctx, post); err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		return tx.Users().IncrementPostCount(ctx, p.UserID, 1)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPostCreated()
	s.log.WithFields(logrus.Fields{"post_id": post.ID, "author_id": p.UserID}).Info("post created")
	return s.reload(ctx, post.ID)
}

func (s *postService) reload(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	post, err := s.store.Posts().FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrPostNotFound)
	}
	return post, nil
}

// authorize loads the post and checks the caller may modify it.
func authorize(ctx context.Context, posts repository.PostRepository, p auth.Principal, id uuid.UUID) (*model.Post, error) {
	if !p.Authenticated() {
		return nil, errors.ErrUnauthenticated
	}
	post, err := posts.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrPostNotFound)
	}
	if !auth.CanModifyPost(p, post.AuthorID) {
		return nil, errors.ErrForbidden
	}
	return post, nil
}

func (s *postService) Update(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdatePostInput) (*model.Post, error) {
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		post, err := authorize(ctx, tx.Posts(), p, id)
		if err != nil {
			return err
		}

		if title := strings.TrimSpace(in.Title); title != "" {
			if utf8.RuneCountInString(title) > maxTitleLength {
				return invalidInput("title must be 1-%d characters", maxTitleLength)
			}
			post.Title = title
		}
		if strings.TrimSpace(in.Content) != "" {
			post.Content = in.Content
		}
		if in.CategoryID != nil {
			if _, err := tx.Categories().FindByID(ctx, *in.CategoryID); err != nil {
				return notFound(err, errors.ErrCategoryNotFound)
			}
			categoryID := *in.CategoryID
			post.CategoryID = &categoryID
		}
		if in.Tags != nil {
			post.Tags = cleanTags(in.Tags)
		}
		if in.Price != nil {
			if err := checkPrice(*in.Price); err != nil {
				return err
			}
			post.Price = *in.Price
		}
		if in.IsFree != nil {
			post.IsFree = *in.IsFree
		}
		if in.IsSold != nil {
			post.IsSold = *in.IsSold
		}
		if in.IsPinned != nil && auth.Allowed(p.Role, auth.PermModerateContent) {
			post.IsPinned = *in.IsPinned
		}

		return tx.Posts().Update(ctx, post)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

// Delete removes a post with its replies and decrements the author's post
// count, which may not be the caller's.
func (s *postService) Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	var authorID uuid.UUID
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		post, err := authorize(ctx, tx.Posts(), p, id)
		if err != nil {
			return err
		}
		authorID = post.AuthorID

		if err := tx.Posts().Delete(ctx, id); err != nil {
			return notFound(err, errors.ErrPostNotFound)
		}
		return tx.Users().IncrementPostCount(ctx, post.AuthorID, -1)
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"post_id":   id,
		"author_id": authorID,
		"actor_id":  p.UserID,
	}).Info("post deleted")
	return nil
}

func (s *postService) ToggleLike(ctx context.Context, p auth.Principal, postID uuid.UUID) ([]uuid.UUID, error) {
	if !p.Authenticated() {
		return nil, errors.ErrUnauthenticated
	}

	var (
		likes []uuid.UUID
		added bool
	)
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		posts := tx.Posts()
		if _, err := posts.FindByIDForUpdate(ctx, postID); err != nil {
			return notFound(err, errors.ErrPostNotFound)
		}

		liked, err := posts.HasLike(ctx, postID, p.UserID)
		if err != nil {
			return fmt.Errorf("check like: %w", err)
		}
		if liked {
			err = posts.RemoveLike(ctx, postID, p.UserID)
		} else {
			err = posts.AddLike(ctx, postID, p.UserID)
		}
		if err != nil {
			return fmt.Errorf("toggle like: %w", err)
		}
		added = !liked

		likes, err = posts.Likes(ctx, postID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSocialAction("post_like", likeResult(added))
	return likes, nil
}

func likeResult(added bool) string {
	if added {
		return "added"
	}
	return "removed"
}

func (s *postService) AddReply(ctx context.Context, p auth.Principal, postID uuid.UUID, content string) ([]model.Reply, error) {
	if !p.Authenticated() {
		return nil, errors.ErrUnauthenticated
	}
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > maxReplyLength {
		return nil, invalidInput("reply must be 1-%d characters", maxReplyLength)
	}

	posts := s.store.Posts()
	if _, err := posts.FindByIDForUpdate(ctx, postID); err != nil {
		return nil, notFound(err, errors.ErrPostNotFound)
	}

	reply := &model.Reply{PostID: postID, UserID: p.UserID, Content: content}
	if err := posts.CreateReply(ctx, reply); err != nil {
		return nil, fmt.Errorf("create reply: %w", err)
	}

	replies, err := posts.Replies(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return replies, nil
}

func (s *postService) ToggleReplyLike(ctx context.Context, p auth.Principal, postID, replyID uuid.UUID) ([]uuid.UUID, error) {
	if !p.Authenticated() {
		return nil, errors.ErrUnauthenticated
	}

	var (
		likes []uuid.UUID
		added bool
	)
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		posts := tx.Posts()
		if _, err := posts.FindByIDForUpdate(ctx, postID); err != nil {
			return notFound(err, errors.ErrPostNotFound)
		}
		if _, err := posts.FindReply(ctx, postID, replyID); err != nil {
			return notFound(err, errors.ErrReplyNotFound)
		}

		liked, err := posts.HasReplyLike(ctx, replyID, p.UserID)
		if err != nil {
			return fmt.Errorf("check reply like: %w", err)
		}
		if liked {
			err = posts.RemoveReplyLike(ctx, replyID, p.UserID)
		} else {
			err = posts.AddReplyLike(ctx, replyID, p.UserID)
		}
		if err != nil {
			return fmt.Errorf("toggle reply like: %w", err)
		}
		added = !liked

		likes, err = posts.ReplyLikes(ctx, replyID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSocialAction("reply_like", likeResult(added))
	return likes, nil
}
