package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/auth"
	"marketplace/internal/errors"
	"marketplace/internal/model"
	"marketplace/internal/repository/memory"
)

func TestAdminService_Stats(t *testing.T) {
	store := memory.NewStore()
	admin := NewAdminService(store, nil, testLog)
	posts := NewPostService(store, testLog)
	ctx := context.Background()
	owner := seedUser(t, store, "owner", model.RoleOwner)
	bob := seedUser(t, store, "bob", model.RoleUser)
	category := seedCategory(t, store, "services")

	post, err := posts.Create(ctx, bob, CreatePostInput{Title: "t", Content: "c", CategoryID: category.ID})
	require.NoError(t, err)
	_, err = posts.AddReply(ctx, owner, post.ID, "nice")
	require.NoError(t, err)

	stats, err := admin.Stats(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(2), stats.NewUsersToday)
	assert.Equal(t, int64(2), stats.ActiveUsers)
	assert.Equal(t, int64(1), stats.TotalPosts)
	assert.Equal(t, int64(1), stats.NewPostsToday)
	assert.Equal(t, int64(1), stats.TotalCategories)
	assert.Equal(t, int64(1), stats.TotalReplies)

	_, err = admin.Stats(ctx, bob)
	assert.ErrorIs(t, err, errors.ErrForbidden)
}

func TestAdminService_UpdateRole(t *testing.T) {
	store := memory.NewStore()
	admin := NewAdminService(store, nil, testLog)
	ctx := context.Background()
	root := seedUser(t, store, "root", model.RoleAdmin)
	bob := seedUser(t, store, "bob", model.RoleUser)

	updated, err := admin.UpdateRole(ctx, root, bob.UserID, "Moderator")
	require.NoError(t, err)
	assert.Equal(t, model.RoleModerator, updated.Role)

	_, err = admin.UpdateRole(ctx, root, bob.UserID, "superuser")
	assert.ErrorIs(t, err, errors.ErrInvalidRole)

	stored, err := store.Users().FindByID(ctx, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleModerator, stored.Role)

	_, err = admin.UpdateRole(ctx, root, uuid.New(), "user")
	assert.ErrorIs(t, err, errors.ErrUserNotFound)

	_, err = admin.UpdateRole(ctx, bob, root.UserID, "user")
	assert.ErrorIs(t, err, errors.ErrForbidden)
}

func TestAdminService_BanUnban(t *testing.T) {
	store := memory.NewStore()
	admin := NewAdminService(store, nil, testLog)
	ctx := context.Background()
	root := seedUser(t, store, "root", model.RoleAdmin)
	bob := seedUser(t, store, "bob", model.RoleUser)

	banned, err := admin.Ban(ctx, root, bob.UserID, "spam")
	require.NoError(t, err)
	assert.False(t, banned.IsActive)

	users, err := admin.ListUsers(ctx, root)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	unbanned, err := admin.Unban(ctx, root, bob.UserID)
	require.NoError(t, err)
	assert.True(t, unbanned.IsActive)

	_, err = admin.Ban(ctx, auth.Principal{}, bob.UserID, "")
	assert.ErrorIs(t, err, errors.ErrUnauthenticated)
}

func TestAdminService_ListPosts(t *testing.T) {
	store := memory.NewStore()
	admin := NewAdminService(store, nil, testLog)
	posts := NewPostService(store, testLog)
	ctx := context.Background()
	root := seedUser(t, store, "root", model.RoleAdmin)
	category := seedCategory(t, store, "services")

	_, err := posts.Create(ctx, root, CreatePostInput{Title: "first", Content: "c", CategoryID: category.ID})
	require.NoError(t, err)

	list, err := admin.ListPosts(ctx, root)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "first", list[0].Title)
}
