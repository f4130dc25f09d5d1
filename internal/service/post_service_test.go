package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/errors"
	"marketplace/internal/model"
	"marketplace/internal/repository"
	"marketplace/internal/repository/memory"
)

func TestPostService_Scenario(t *testing.T) {
	store := memory.NewStore()
	authSvc, _ := newAuthService(store, permissiveTokens())
	posts := NewPostService(store, testLog)
	ctx := context.Background()
	category := seedCategory(t, store, "digital-goods")

	aliceReg, err := authSvc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	bobReg, err := authSvc.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Password: "password123"})
	require.NoError(t, err)
	alice := principalOf(aliceReg.User)
	bob := principalOf(bobReg.User)
	mallory := seedUser(t, store, "mallory", model.RoleUser)

	post, err := posts.Create(ctx, bob, CreatePostInput{
		Title:      "Ebook bundle",
		Content:    "Ten ebooks",
		CategoryID: category.ID,
		Price:      decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.True(t, post.Price.Equal(decimal.NewFromInt(10)))
	require.NotNil(t, post.Category)
	assert.Equal(t, "digital-goods", post.Category.Slug)

	likes, err := posts.ToggleLike(ctx, alice, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{alice.UserID}, likes)

	likes, err = posts.ToggleLike(ctx, alice, post.ID)
	require.NoError(t, err)
	assert.Empty(t, likes)

	edited, err := posts.Update(ctx, bob, post.ID, UpdatePostInput{Title: "Ebook bundle v2"})
	require.NoError(t, err)
	assert.Equal(t, "Ebook bundle v2", edited.Title)
	assert.Equal(t, "Ten ebooks", edited.Content)

	err = posts.Delete(ctx, mallory, post.ID)
	assert.ErrorIs(t, err, errors.ErrForbidden)

	unchanged, err := store.Posts().FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ebook bundle v2", unchanged.Title)
}

func TestPostService_PostCount(t *testing.T) {
	store := memory.NewStore()
	posts := NewPostService(store, testLog)
	ctx := context.Background()
	category := seedCategory(t, store, "services")
	bob := seedUser(t, store, "bob", model.RoleUser)
	mod := seedUser(t, store, "mod", model.RoleModerator)

	post, err := posts.Create(ctx, bob, CreatePostInput{Title: "t", Content: "c", CategoryID: category.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, postCount(t, store, bob.UserID))

	require.NoError(t, posts.Delete(ctx, mod, post.ID))
	assert.Equal(t, 0, postCount(t, store, bob.UserID))
	assert.Equal(t, 0, postCount(t, store, mod.UserID))

	_, err = posts.Get(ctx, post.ID)
	assert.ErrorIs(t, err, errors.ErrPostNotFound)
}

func TestPostService_CreateValidation(t *testing.T) {
	store := memory.NewStore()
	posts := NewPostService(store, testLog)
	ctx := context.Background()
	category := seedCategory(t, store, "tutorials")
	bob := seedUser(t, store, "bob", model.RoleUser)

	_, err := posts.Create(ctx, bob, CreatePostInput{Title: "t", Content: "c", CategoryID: uuid.New()})
	assert.ErrorIs(t, err, errors.ErrCategoryNotFound)
	assert.Equal(t, 0, postCount(t, store, bob.UserID))

	_, err = posts.Create(ctx, bob, CreatePostInput{Title: "", Content: "c", CategoryID: category.ID})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = posts.Create(ctx, bob, CreatePostInput{Title: "t", Content: "c", CategoryID: category.ID, Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	free, err := posts.Create(ctx, bob, CreatePostInput{Title: "t", Content: "c", CategoryID: category.ID, IsFree: true, Price: decimal.NewFromInt(5)})
	require.NoError(t, err)
	assert.True(t, free.Price.IsZero())
}

func TestPostService_LengthLimitsCountCharacters(t *testing.T) {
	store := memory.NewStore()
	posts := NewPostService(store, testLog)
	ctx := context.Background()
	category := seedCategory(t, store, "discussions")
	bob := seedUser(t, store, "bob", model.RoleUser)

	// 200 two-byte runes fit, 201 do not
	title := strings.Repeat("é", maxTitleLength)
	post, err := posts.Create(ctx, bob, CreatePostInput{Title: title, Content: "c", CategoryID: category.ID})
	require.NoError(t, err)
	assert.Equal(t, title, post.Title)

	_, err = posts.Create(ctx, bob, CreatePostInput{Title: title + "é", Content: "c", CategoryID: category.ID})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	updated, err := posts.Update(ctx, bob, post.ID, UpdatePostInput{Title: strings.Repeat("ü", 150)})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ü", 150), updated.Title)

	_, err = posts.Update(ctx, bob, post.ID, UpdatePostInput{Title: strings.Repeat("ü", maxTitleLength+1)})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	reply := strings.Repeat("日", maxReplyLength)
	replies, err := posts.AddReply(ctx, bob, post.ID, reply)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, reply, replies[0].Content)

	_, err = posts.AddReply(ctx, bob, post.ID, reply+"日")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestPostService_UpdateAuthorization(t *testing.T) {
	store := memory.NewStore()
	posts := NewPostService(store, testLog)
	ctx := context.Background()
	category := seedCategory(t, store, "discussions")
	bob := seedUser(t, store, "bob", model.RoleUser)
	pin := true

	post, err := posts.Create(ctx, bob, CreatePostInput{Title: "t", Content: "c", CategoryID: category.ID})
	require.NoError(t, err)

	tests := []struct {
		name      string
		role      model.Role
		wantError error
	}{
		{"plain user", model.RoleUser, errors.ErrForbidden},
		{"trusted user", model.RoleTrusted, errors.ErrForbidden},
		{"moderator", model.RoleModerator, nil},
		{"admin", model.RoleAdmin, nil},
		{"owner", model.RoleOwner, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := seedUser(t, store, "actor-"+string(tt.role), tt.role)
			updated, err := posts.Update(ctx, actor, post.ID, UpdatePostInput{Title: "by " + string(tt.role), IsPinned: &pin})
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.True(t, updated.IsPinned)
		})
	}

	t.Run("author cannot pin", func(t *testing.T) {
		unpin := false
		_, err := posts.Update(ctx, seedUser(t, store, "mod2", model.RoleModerator), post.ID, UpdatePostInput{IsPinned: &unpin})
		require.NoError(t, err)

		updated, err := posts.Update(ctx, bob, post.ID, UpdatePostInput{IsPinned: &pin})
		require.NoError(t, err)
		assert.False(t, updated.IsPinned)
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := posts.Update(ctx, bob, uuid.New(), UpdatePostInput{Title: "x"})
		assert.ErrorIs(t, err, errors.ErrPostNotFound)
	})
}

func TestPostService_FreeToggleClearsPrice(t *testing.T) {
	store := memory.NewStore()
	posts := NewPostService(store, testLog)
	ctx := context.Background()
	category := seedCategory(t, store, "digital-goods")
	bob := seedUser(t, store, "bob", model.RoleUser)

	post, err := posts.Create(ctx, bob, CreatePostInput{Title: "t", Content: "c", CategoryID: category.ID, Price: decimal.NewFromInt(10)})
	require.NoError(t, err)

	free := true
	sold := true
	updated, err := posts.Update(ctx, bob, post.ID, UpdatePostInput{IsFree: &free, IsSold: &sold})
	require.NoError(t, err)
	assert.True(t, updated.IsFree)
	assert.True(t, updated.IsSold)
	assert.True(t, updated.Price.IsZero())
}

func TestPostService_Replies(t *testing.T) {
	store := memory.NewStore()
	posts := NewPostService(store, testLog)
	ctx := context.Background()
	category := seedCategory(t, store, "discussions")
	bob := seedUser(t, store, "bob", model.RoleUser)
	alice := seedUser(t, store, "alice", model.RoleUser)

	post, err := posts.Create(ctx, bob, CreatePostInput{Title: "t", Content: "c", CategoryID: category.ID})
	require.NoError(t, err)

	replies, err := posts.AddReply(ctx, alice, post.ID, "first!")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	require.NotNil(t, replies[0].User)
	assert.Equal(t, "alice", replies[0].User.Username)

	_, err = posts.AddReply(ctx, alice, post.ID, "   ")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = posts.AddReply(ctx, alice, uuid.New(), "hello")
	assert.ErrorIs(t, err, errors.ErrPostNotFound)

	likes, err := posts.ToggleReplyLike(ctx, bob, post.ID, replies[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{bob.UserID}, likes)

	likes, err = posts.ToggleReplyLike(ctx, bob, post.ID, replies[0].ID)
	require.NoError(t, err)
	assert.Empty(t, likes)

	_, err = posts.ToggleReplyLike(ctx, bob, post.ID, uuid.New())
	assert.ErrorIs(t, err, errors.ErrReplyNotFound)

	full, err := posts.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, full.Views)
	assert.Len(t, full.Replies, 1)
}

func TestPostService_ListFilters(t *testing.T) {
	store := memory.NewStore()
	posts := NewPostService(store, testLog)
	ctx := context.Background()
	goods := seedCategory(t, store, "digital-goods")
	services := seedCategory(t, store, "services")
	bob := seedUser(t, store, "bob", model.RoleUser)
	alice := seedUser(t, store, "alice", model.RoleUser)

	_, err := posts.Create(ctx, bob, CreatePostInput{Title: "Logo design", Content: "fast", CategoryID: services.ID, Tags: []string{"design"}})
	require.NoError(t, err)
	_, err = posts.Create(ctx, alice, CreatePostInput{Title: "Wallpapers", Content: "4k DESIGN pack", CategoryID: goods.ID})
	require.NoError(t, err)

	list, err := posts.List(ctx, repository.PostFilter{AuthorID: &alice.UserID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Wallpapers", list[0].Title)

	list, err = posts.List(ctx, repository.PostFilter{Query: "design"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = posts.List(ctx, repository.PostFilter{CategoryID: &services.ID, Sort: repository.ParsePostSort("relevance")})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Logo design", list[0].Title)
}
