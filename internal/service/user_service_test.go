package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/errors"
	"marketplace/internal/model"
	"marketplace/internal/repository"
	"marketplace/internal/repository/memory"
)

// staleUsers answers the first uniqueness lookup of each kind as if nothing
// was taken, the way a concurrent writer can slip in between check and update.
type staleUsers struct {
	repository.UserRepository
	urlChecked, emailChecked bool
}

func (u *staleUsers) FindByCustomURL(ctx context.Context, customURL string) (*model.User, error) {
	if !u.urlChecked {
		u.urlChecked = true
		return nil, repository.ErrNotFound
	}
	return u.UserRepository.FindByCustomURL(ctx, customURL)
}

func (u *staleUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if !u.emailChecked {
		u.emailChecked = true
		return nil, repository.ErrNotFound
	}
	return u.UserRepository.FindByEmail(ctx, email)
}

type staleStore struct {
	*memory.Store
}

func (s staleStore) Users() repository.UserRepository {
	return &staleUsers{UserRepository: s.Store.Users()}
}

func TestUserService_ToggleVouch(t *testing.T) {
	store := memory.NewStore()
	svc := NewUserService(store, testLog)
	ctx := context.Background()
	alice := seedUser(t, store, "alice", model.RoleUser)
	bob := seedUser(t, store, "bob", model.RoleUser)

	set, err := svc.ToggleVouch(ctx, alice, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{alice.UserID}, set.Received)

	given, err := store.Users().Vouches(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{bob.UserID}, given.Given)

	set, err = svc.ToggleVouch(ctx, alice, bob.UserID)
	require.NoError(t, err)
	assert.Empty(t, set.Received)

	given, err = store.Users().Vouches(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Empty(t, given.Given)
}

func TestUserService_ToggleVouchErrors(t *testing.T) {
	store := memory.NewStore()
	svc := NewUserService(store, testLog)
	ctx := context.Background()
	alice := seedUser(t, store, "alice", model.RoleUser)

	_, err := svc.ToggleVouch(ctx, alice, alice.UserID)
	assert.ErrorIs(t, err, errors.ErrSelfVouch)

	set, err := store.Users().Vouches(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Empty(t, set.Given)
	assert.Empty(t, set.Received)

	_, err = svc.ToggleVouch(ctx, alice, uuid.New())
	assert.ErrorIs(t, err, errors.ErrUserNotFound)
}

func TestUserService_GiveRep(t *testing.T) {
	store := memory.NewStore()
	svc := NewUserService(store, testLog)
	ctx := context.Background()
	alice := seedUser(t, store, "alice", model.RoleUser)
	bob := seedUser(t, store, "bob", model.RoleUser)

	rep, err := svc.GiveRep(ctx, alice, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, rep)

	rep, err = svc.GiveRep(ctx, alice, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, rep)

	_, err = svc.GiveRep(ctx, alice, alice.UserID)
	assert.ErrorIs(t, err, errors.ErrSelfRep)
	self, err := store.Users().FindByID(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Zero(t, self.Reputation)

	_, err = svc.GiveRep(ctx, alice, uuid.New())
	assert.ErrorIs(t, err, errors.ErrUserNotFound)
}

func TestUserService_GetProfile(t *testing.T) {
	store := memory.NewStore()
	svc := NewUserService(store, testLog)
	ctx := context.Background()
	alice := seedUser(t, store, "alice", model.RoleTrusted)
	bob := seedUser(t, store, "bob", model.RoleUser)
	_, err := svc.ToggleVouch(ctx, bob, alice.UserID)
	require.NoError(t, err)

	profile, err := svc.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, profile.ID)
	assert.Equal(t, model.RoleTrusted, profile.Role)
	assert.Equal(t, []uuid.UUID{bob.UserID}, profile.Vouches.Received)
	assert.Equal(t, model.DefaultAvatar, profile.Profile.Avatar)

	_, err = svc.GetProfile(ctx, "nobody")
	assert.ErrorIs(t, err, errors.ErrUserNotFound)
}

func TestUserService_UpdateProfile(t *testing.T) {
	store := memory.NewStore()
	svc := NewUserService(store, testLog)
	ctx := context.Background()
	alice := seedUser(t, store, "alice", model.RoleUser)
	bob := seedUser(t, store, "bob", model.RoleUser)

	updated, err := svc.UpdateProfile(ctx, alice, UpdateProfileInput{Bio: "hello", CustomURL: "alice-shop"})
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Profile.Bio)
	require.NotNil(t, updated.Profile.CustomURL)
	assert.Equal(t, "alice-shop", *updated.Profile.CustomURL)
	assert.Equal(t, "alice@example.com", updated.Email)

	// empty fields keep their values
	updated, err = svc.UpdateProfile(ctx, alice, UpdateProfileInput{Avatar: "https://cdn.example.com/a.png"})
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Profile.Bio)
	assert.Equal(t, "https://cdn.example.com/a.png", updated.Profile.Avatar)

	_, err = svc.UpdateProfile(ctx, bob, UpdateProfileInput{CustomURL: "alice-shop"})
	assert.ErrorIs(t, err, errors.ErrCustomURLTaken)

	_, err = svc.UpdateProfile(ctx, bob, UpdateProfileInput{Email: "alice@example.com"})
	assert.ErrorIs(t, err, errors.ErrEmailTaken)

	updated, err = svc.UpdateProfile(ctx, bob, UpdateProfileInput{Email: "Bob2@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "bob2@example.com", updated.Email)
}

func TestUserService_UpdateProfileLostRace(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	alice := seedUser(t, store, "alice", model.RoleUser)
	bob := seedUser(t, store, "bob", model.RoleUser)

	_, err := NewUserService(store, testLog).UpdateProfile(ctx, alice, UpdateProfileInput{CustomURL: "alice-shop"})
	require.NoError(t, err)

	svc := NewUserService(staleStore{Store: store}, testLog)

	_, err = svc.UpdateProfile(ctx, bob, UpdateProfileInput{CustomURL: "alice-shop"})
	assert.ErrorIs(t, err, errors.ErrCustomURLTaken)

	_, err = svc.UpdateProfile(ctx, bob, UpdateProfileInput{Email: "alice@example.com"})
	assert.ErrorIs(t, err, errors.ErrEmailTaken)

	stored, err := store.Users().FindByID(ctx, bob.UserID)
	require.NoError(t, err)
	assert.Nil(t, stored.Profile.CustomURL)
	assert.Equal(t, "bob@example.com", stored.Email)
}
