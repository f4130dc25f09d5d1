package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/errors"
	"marketplace/internal/model"
	"marketplace/internal/repository/memory"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Digital Goods":         "digital-goods",
		"  Tutorials & Guides ": "tutorials-guides",
		"C++ / Go":              "c-go",
		"---":                   "",
		"Café 2":                "café-2",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestCategoryService_Create(t *testing.T) {
	store := memory.NewStore()
	svc := NewCategoryService(store, nil, testLog)
	ctx := context.Background()
	admin := seedUser(t, store, "admin", model.RoleAdmin)

	created, err := svc.Create(ctx, admin, CategoryInput{Name: "Digital Goods", Description: "Files"})
	require.NoError(t, err)
	assert.Equal(t, "digital-goods", created.Slug)
	assert.True(t, created.IsActive)

	_, err = svc.Create(ctx, admin, CategoryInput{Name: "Other", Slug: "Digital Goods"})
	assert.ErrorIs(t, err, errors.ErrSlugTaken)

	_, err = svc.Create(ctx, admin, CategoryInput{Name: "  "})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	for _, role := range []model.Role{model.RoleUser, model.RoleTrusted, model.RoleModerator} {
		p := seedUser(t, store, "cat-"+string(role), role)
		_, err := svc.Create(ctx, p, CategoryInput{Name: "Nope"})
		assert.ErrorIs(t, err, errors.ErrForbidden, role)
	}
}

func TestCategoryService_ActiveListing(t *testing.T) {
	store := memory.NewStore()
	svc := NewCategoryService(store, nil, testLog)
	ctx := context.Background()
	admin := seedUser(t, store, "admin", model.RoleOwner)
	inactive := false

	_, err := svc.Create(ctx, admin, CategoryInput{Name: "Services"})
	require.NoError(t, err)
	hidden, err := svc.Create(ctx, admin, CategoryInput{Name: "Archive", IsActive: &inactive})
	require.NoError(t, err)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "services", active[0].Slug)

	all, err := svc.ListAll(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.GetBySlug(ctx, hidden.Slug)
	assert.ErrorIs(t, err, errors.ErrCategoryNotFound)

	got, err := svc.GetBySlug(ctx, "services")
	require.NoError(t, err)
	assert.Equal(t, "Services", got.Name)
}

func TestCategoryService_Update(t *testing.T) {
	store := memory.NewStore()
	svc := NewCategoryService(store, nil, testLog)
	ctx := context.Background()
	admin := seedUser(t, store, "admin", model.RoleAdmin)
	order := 3

	first, err := svc.Create(ctx, admin, CategoryInput{Name: "Services"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, CategoryInput{Name: "Tutorials"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, admin, first.ID, CategoryInput{Icon: "wrench", Order: &order})
	require.NoError(t, err)
	assert.Equal(t, "Services", updated.Name)
	assert.Equal(t, "wrench", updated.Icon)
	assert.Equal(t, 3, updated.Order)

	_, err = svc.Update(ctx, admin, first.ID, CategoryInput{Slug: "tutorials"})
	assert.ErrorIs(t, err, errors.ErrSlugTaken)
}

func TestCategoryService_DeleteDetachesPosts(t *testing.T) {
	store := memory.NewStore()
	categories := NewCategoryService(store, nil, testLog)
	posts := NewPostService(store, testLog)
	ctx := context.Background()
	admin := seedUser(t, store, "admin", model.RoleAdmin)
	bob := seedUser(t, store, "bob", model.RoleUser)

	category, err := categories.Create(ctx, admin, CategoryInput{Name: "Discussions"})
	require.NoError(t, err)
	post, err := posts.Create(ctx, bob, CreatePostInput{Title: "t", Content: "c", CategoryID: category.ID})
	require.NoError(t, err)

	assert.ErrorIs(t, categories.Delete(ctx, bob, category.ID), errors.ErrForbidden)
	require.NoError(t, categories.Delete(ctx, admin, category.ID))

	orphan, err := posts.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, orphan.CategoryID)

	assert.ErrorIs(t, categories.Delete(ctx, admin, category.ID), errors.ErrCategoryNotFound)
}
