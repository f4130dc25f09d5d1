package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"marketplace/internal/model"
	"marketplace/internal/repository"
)

type categoryRepository struct {
	s *session
}

func slugTaken(d *data, c *model.Category) bool {
	for id, other := range d.categories {
		if id != c.ID && other.Slug == c.Slug {
			return true
		}
	}
	return false
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	return r.s.write(func(d *data) error {
		if category.ID == uuid.Nil {
			category.ID = uuid.New()
		}
		if _, ok := d.categories[category.ID]; ok || slugTaken(d, category) {
			return repository.ErrDuplicateKey
		}
		now := r.s.now()
		category.CreatedAt, category.UpdatedAt = now, now
		d.categories[category.ID] = *category
		return nil
	})
}

// Update saves the whole category, inserting it when missing.
func (r *categoryRepository) Update(ctx context.Context, category *model.Category) error {
	return r.s.write(func(d *data) error {
		if slugTaken(d, category) {
			return repository.ErrDuplicateKey
		}
		now := r.s.now()
		if category.CreatedAt.IsZero() {
			category.CreatedAt = now
		}
		category.UpdatedAt = now
		d.categories[category.ID] = *category
		return nil
	})
}

func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(func(d *data) error {
		if _, ok := d.categories[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.categories, id)
		return nil
	})
}

func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var (
		c  model.Category
		ok bool
	)
	r.s.read(func(d *data) { c, ok = d.categories[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	var found *model.Category
	r.s.read(func(d *data) {
		for _, c := range d.categories {
			if c.Slug == slug {
				c := c
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

func (r *categoryRepository) List(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	categories := []model.Category{}
	r.s.read(func(d *data) {
		for _, c := range d.categories {
			if activeOnly && !c.IsActive {
				continue
			}
			categories = append(categories, c)
		}
	})
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Order != categories[j].Order {
			return categories[i].Order < categories[j].Order
		}
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

func (r *categoryRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	r.s.read(func(d *data) { n = int64(len(d.categories)) })
	return n, nil
}
