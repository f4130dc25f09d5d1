package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"marketplace/internal/auth"
	"marketplace/internal/cache"
	"marketplace/internal/errors"
	"marketplace/internal/model"
	"marketplace/internal/repository"
)

const (
	activeCategoriesKey = "categories:active"
	categoryCacheTTL    = 5 * time.Minute
)

// CategoryInput holds category fields. On update, empty strings and nil
// pointers keep the current value.
type CategoryInput struct {
	Name        string
	Slug        string
	Description string
	Icon        string
	IsActive    *bool
	Order       *int
}

// CategoryService exposes public category lookups and admin writes.
type CategoryService interface {
	// ListActive returns the categories shown to visitors.
	ListActive(ctx context.Context) ([]model.Category, error)
	// GetBySlug returns an active category.
	GetBySlug(ctx context.Context, slug string) (*model.Category, error)
	ListAll(ctx context.Context, p auth.Principal) ([]model.Category, error)
	Create(ctx context.Context, p auth.Principal, in CategoryInput) (*model.Category, error)
	Update(ctx context.Context, p auth.Principal, id uuid.UUID, in CategoryInput) (*model.Category, error)
	// Delete removes a category and leaves its posts uncategorised.
	Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error
}

type categoryService struct {
	store repository.Store
	cache *cache.Client
	log   logrus.FieldLogger
}

// NewCategoryService builds a CategoryService with repository and cache.
func NewCategoryService(store repository.Store, cache *cache.Client, log logrus.FieldLogger) CategoryService {
	return &categoryService{store: store, cache: cache, log: log}
}

// Slugify lowercases s and joins its letter and digit runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

func (s *categoryService) ListActive(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if s.cache.GetJSON(ctx, activeCategoriesKey, &categories) {
		return categories, nil
	}

	categories, err := s.store.Categories().List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	s.cache.SetJSON(ctx, activeCategoriesKey, categories, categoryCacheTTL)
	return categories, nil
}

func (s *categoryService) GetBySlug(ctx context.Context, slug string) (*model.Category, error) {
	category, err := s.store.Categories().FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, errors.ErrCategoryNotFound)
	}
	if !category.IsActive {
		return nil, errors.ErrCategoryNotFound
	}
	return category, nil
}

func (s *categoryService) ListAll(ctx context.Context, p auth.Principal) ([]model.Category, error) {
	if err := auth.Require(p, auth.PermManageCategories); err != nil {
		return nil, err
	}
	categories, err := s.store.Categories().List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *categoryService) Create(ctx context.Context, p auth.Principal, in CategoryInput) (*model.Category, error) {
	if err := auth.Require(p, auth.PermManageCategories); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidInput("name is required")
	}
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, invalidInput("slug must contain letters or digits")
	}

	category := &model.Category{
		Name:        name,
		Slug:        slug,
		Description: in.Description,
		Icon:        in.Icon,
		IsActive:    true,
	}
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}
	if in.Order != nil {
		category.Order = *in.Order
	}

	categories := s.store.Categories()
	if _, err := categories.FindBySlug(ctx, slug); err == nil {
		return nil, errors.ErrSlugTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check slug: %w", err)
	}
	if err := categories.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, errors.ErrSlugTaken
		}
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.invalidate(ctx)
	s.log.WithFields(logrus.Fields{"category_id": category.ID, "slug": slug, "actor_id": p.UserID}).Info("category created")
	return category, nil
}

func (s *categoryService) Update(ctx context.Context, p auth.Principal, id uuid.UUID, in CategoryInput) (*model.Category, error) {
	if err := auth.Require(p, auth.PermManageCategories); err != nil {
		return nil, err
	}
	categories := s.store.Categories()
	category, err := categories.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrCategoryNotFound)
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		category.Name = name
	}
	if in.Slug != "" {
		slug := Slugify(in.Slug)
		if slug == "" {
			return nil, invalidInput("slug must contain letters or digits")
		}
		if other, err := categories.FindBySlug(ctx, slug); err == nil && other.ID != id {
			return nil, errors.ErrSlugTaken
		} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("check slug: %w", err)
		}
		category.Slug = slug
	}
	if in.Description != "" {
		category.Description = in.Description
	}
	if in.Icon != "" {
		category.Icon = in.Icon
	}
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}
	if in.Order != nil {
		category.Order = *in.Order
	}

	if err := categories.Update(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, errors.ErrSlugTaken
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	s.invalidate(ctx)
	return category, nil
}

func (s *categoryService) Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if err := auth.Require(p, auth.PermManageCategories); err != nil {
		return err
	}
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Categories().FindByID(ctx, id); err != nil {
			return notFound(err, errors.ErrCategoryNotFound)
		}
		if err := tx.Posts().DetachCategory(ctx, id); err != nil {
			return fmt.Errorf("detach posts: %w", err)
		}
		return notFound(tx.Categories().Delete(ctx, id), errors.ErrCategoryNotFound)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.log.WithFields(logrus.Fields{"category_id": id, "actor_id": p.UserID}).Info("category deleted")
	return nil
}

func (s *categoryService) invalidate(ctx context.Context) {
	_ = s.cache.Delete(ctx, activeCategoriesKey)
}
