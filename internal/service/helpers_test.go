package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketplace/internal/auth"
	"marketplace/internal/logging"
	"marketplace/internal/model"
	"marketplace/internal/repository/memory"
)

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uuid.UUID, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, userID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (uuid.UUID, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockTokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// seedUser stores a user directly, bypassing registration.
func seedUser(t *testing.T, store *memory.Store, username string, role model.Role) auth.Principal {
	t.Helper()
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "unused",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return auth.Principal{UserID: u.ID, Username: u.Username, Role: u.Role}
}

func seedCategory(t *testing.T, store *memory.Store, slug string) *model.Category {
	t.Helper()
	c := &model.Category{Name: slug, Slug: slug, IsActive: true}
	require.NoError(t, store.Categories().Create(context.Background(), c))
	return c
}

func postCount(t *testing.T, store *memory.Store, id uuid.UUID) int {
	t.Helper()
	u, err := store.Users().FindByID(context.Background(), id)
	require.NoError(t, err)
	return u.PostCount
}

var testLog = logging.Discard()

// permissiveTokens accepts every token store call.
func permissiveTokens() *MockTokenStore {
	tokens := new(MockTokenStore)
	tokens.On("StoreRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	tokens.On("IsAccessTokenBlacklisted", mock.Anything, mock.Anything).Return(false, nil)
	return tokens
}

func principalOf(u *model.User) auth.Principal {
	return auth.Principal{UserID: u.ID, Username: u.Username, Role: u.Role}
}
