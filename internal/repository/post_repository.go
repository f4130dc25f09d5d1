package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/model"
)

// PostRepository defines post, reply and like persistence operations.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	// Update persists the editable columns of post.
	Update(ctx context.Context, post *model.Post) error
	// Delete removes the post together with its replies and all their likes.
	Delete(ctx context.Context, id uuid.UUID) error
	// FindByID loads a post with author, category, likes and replies.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error)
	// FindByIDForUpdate loads the bare post row with a row-level lock.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Post, error)
	// List returns posts with author, category and likes, without replies.
	List(ctx context.Context, filter PostFilter) ([]model.Post, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
	// DetachCategory clears category_id on every post in categoryID.
	DetachCategory(ctx context.Context, categoryID uuid.UUID) error

	HasLike(ctx context.Context, postID, userID uuid.UUID) (bool, error)
	AddLike(ctx context.Context, postID, userID uuid.UUID) error
	RemoveLike(ctx context.Context, postID, userID uuid.UUID) error
	// Likes returns the users liking postID in the order they liked it.
	Likes(ctx context.Context, postID uuid.UUID) ([]uuid.UUID, error)

	CreateReply(ctx context.Context, reply *model.Reply) error
	FindReply(ctx context.Context, postID, replyID uuid.UUID) (*model.Reply, error)
	// Replies returns the replies of postID, oldest first, with users and likes.
	Replies(ctx context.Context, postID uuid.UUID) ([]model.Reply, error)
	HasReplyLike(ctx context.Context, replyID, userID uuid.UUID) (bool, error)
	AddReplyLike(ctx context.Context, replyID, userID uuid.UUID) error
	RemoveReplyLike(ctx context.Context, replyID, userID uuid.UUID) error
	ReplyLikes(ctx context.Context, replyID uuid.UUID) ([]uuid.UUID, error)

	Count(ctx context.Context) (int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
	CountReplies(ctx context.Context) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

var postEditableColumns = []string{
	"title", "content", "category_id", "tags", "price", "is_free", "is_sold", "is_pinned", "updated_at",
}

// Create creates a new post.
func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	post.NormalizePrice()
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

// Update updates the editable columns of a post, zero values included.
func (r *postRepository) Update(ctx context.Context, post *model.Post) error {
	post.NormalizePrice()
	res := r.db.WithContext(ctx).Model(&model.Post{ID: post.ID}).
		Select(postEditableColumns).
		Updates(post)
	return res.Error
}

// Delete removes a post and everything hanging off it.
func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		replyIDs := tx.Model(&model.Reply{}).Select("id").Where("post_id = ?", id)
		if err := tx.Where("reply_id IN (?)", replyIDs).Delete(&model.ReplyLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&model.Reply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&model.PostLike{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// FindByID finds a post by ID with everything the detail view shows.
func (r *postRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Category").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("replies.created_at ASC")
		}).
		Preload("Replies.User").
		Where("posts.id = ?", id).
		First(&post).Error
	if err != nil {
		return nil, err
	}

	posts := []model.Post{post}
	if err := r.attachLikes(ctx, posts); err != nil {
		return nil, err
	}
	if err := r.attachReplyLikes(ctx, posts[0].Replies); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// FindByIDForUpdate finds a post by ID with a row-level lock.
func (r *postRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// List lists posts matching filter.
func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]model.Post, error) {
	q := r.db.WithContext(ctx).Model(&model.Post{}).
		Preload("Author").
		Preload("Category")

	if filter.CategoryID != nil {
		q = q.Where("posts.category_id = ?", *filter.CategoryID)
	}
	if filter.AuthorID != nil {
		q = q.Where("posts.author_id = ?", *filter.AuthorID)
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		q = q.Where(
			"LOWER(posts.title) LIKE ? OR LOWER(posts.content) LIKE ? OR JSON_CONTAINS(posts.tags, JSON_QUOTE(?))",
			pattern, pattern, term,
		)
	}

	for _, order := range orderFor(filter.Sort) {
		q = q.Order(order)
	}

	var posts []model.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, err
	}
	if err := r.attachLikes(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func orderFor(sort PostSort) []string {
	switch sort {
	case SortPopular:
		return []string{"posts.views DESC", "posts.created_at DESC"}
	case SortPriceLow:
		return []string{"posts.price ASC", "posts.created_at DESC"}
	case SortPriceHigh:
		return []string{"posts.price DESC", "posts.created_at DESC"}
	default:
		return []string{"posts.created_at DESC"}
	}
}

// escapeLike neutralises LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// IncrementViews bumps the view counter without touching updated_at.
func (r *postRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}

// DetachCategory leaves posts of a deleted category uncategorised.
func (r *postRepository) DetachCategory(ctx context.Context, categoryID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).
		Where("category_id = ?", categoryID).
		UpdateColumn("category_id", nil).Error
}

func (r *postRepository) attachLikes(ctx context.Context, posts []model.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(posts))
	index := make(map[uuid.UUID]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
		posts[i].Likes = []uuid.UUID{}
	}

	var likes []model.PostLike
	if err := r.db.WithContext(ctx).Where("post_id IN ?", ids).
		Order("created_at ASC").Find(&likes).Error; err != nil {
		return err
	}
	for _, l := range likes {
		i := index[l.PostID]
		posts[i].Likes = append(posts[i].Likes, l.UserID)
	}
	return nil
}

func (r *postRepository) attachReplyLikes(ctx context.Context, replies []model.Reply) error {
	if len(replies) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(replies))
	index := make(map[uuid.UUID]int, len(replies))
	for i := range replies {
		ids[i] = replies[i].ID
		index[replies[i].ID] = i
		replies[i].Likes = []uuid.UUID{}
	}

	var likes []model.ReplyLike
	if err := r.db.WithContext(ctx).Where("reply_id IN ?", ids).
		Order("created_at ASC").Find(&likes).Error; err != nil {
		return err
	}
	for _, l := range likes {
		i := index[l.ReplyID]
		replies[i].Likes = append(replies[i].Likes, l.UserID)
	}
	return nil
}

func (r *postRepository) HasLike(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.PostLike{}).
		Where("post_id = ? AND user_id = ?", postID, userID).Count(&n).Error
	return n > 0, err
}

func (r *postRepository) AddLike(ctx context.Context, postID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&model.PostLike{PostID: postID, UserID: userID}).Error
}

func (r *postRepository) RemoveLike(ctx context.Context, postID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&model.PostLike{}).Error
}

func (r *postRepository) Likes(ctx context.Context, postID uuid.UUID) ([]uuid.UUID, error) {
	likes := []uuid.UUID{}
	err := r.db.WithContext(ctx).Model(&model.PostLike{}).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Pluck("user_id", &likes).Error
	if likes == nil {
		likes = []uuid.UUID{}
	}
	return likes, err
}

func (r *postRepository) CreateReply(ctx context.Context, reply *model.Reply) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(reply).Error
}

func (r *postRepository) FindReply(ctx context.Context, postID, replyID uuid.UUID) (*model.Reply, error) {
	var reply model.Reply
	if err := r.db.WithContext(ctx).
		Where("id = ? AND post_id = ?", replyID, postID).
		First(&reply).Error; err != nil {
		return nil, err
	}
	return &reply, nil
}

func (r *postRepository) Replies(ctx context.Context, postID uuid.UUID) ([]model.Reply, error) {
	var replies []model.Reply
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&replies).Error; err != nil {
		return nil, err
	}
	if err := r.attachReplyLikes(ctx, replies); err != nil {
		return nil, err
	}
	return replies, nil
}

func (r *postRepository) HasReplyLike(ctx context.Context, replyID, userID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ReplyLike{}).
		Where("reply_id = ? AND user_id = ?", replyID, userID).Count(&n).Error
	return n > 0, err
}

func (r *postRepository) AddReplyLike(ctx context.Context, replyID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&model.ReplyLike{ReplyID: replyID, UserID: userID}).Error
}

func (r *postRepository) RemoveReplyLike(ctx context.Context, replyID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("reply_id = ? AND user_id = ?", replyID, userID).
		Delete(&model.ReplyLike{}).Error
}

func (r *postRepository) ReplyLikes(ctx context.Context, replyID uuid.UUID) ([]uuid.UUID, error) {
	likes := []uuid.UUID{}
	err := r.db.WithContext(ctx).Model(&model.ReplyLike{}).
		Where("reply_id = ?", replyID).
		Order("created_at ASC").
		Pluck("user_id", &likes).Error
	if likes == nil {
		likes = []uuid.UUID{}
	}
	return likes, err
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).Count(&n).Error
	return n, err
}

func (r *postRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}

func (r *postRepository) CountReplies(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Reply{}).Count(&n).Error
	return n, err
}
