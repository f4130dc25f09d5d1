package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/model"
)

func TestJWTService_AccessTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret")
	userID := uuid.New()

	tokenID, token, err := svc.GenerateAccessToken(userID, model.RoleModerator)
	require.NoError(t, err)
	assert.NotEmpty(t, tokenID)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, model.RoleModerator, claims.Role)
	assert.Equal(t, tokenID, claims.ID)
	assert.InDelta(t, AccessTokenExpiry.Seconds(), svc.RemainingTTL(claims).Seconds(), 5)
}

func TestJWTService_RejectsWrongTokenType(t *testing.T) {
	svc := NewJWTService("test-secret")
	userID := uuid.New()

	_, refresh, err := svc.GenerateRefreshToken(userID)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(refresh)
	assert.Error(t, err)

	_, access, err := svc.GenerateAccessToken(userID, model.RoleUser)
	require.NoError(t, err)
	_, err = svc.ValidateRefreshToken(access)
	assert.Error(t, err)
}

func TestJWTService_RejectsForeignSignature(t *testing.T) {
	_, token, err := NewJWTService("secret-a").GenerateAccessToken(uuid.New(), model.RoleUser)
	require.NoError(t, err)

	_, err = NewJWTService("secret-b").ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpiredToken(t *testing.T) {
	svc := NewJWTService("test-secret")
	svc.now = func() time.Time { return time.Now().Add(-2 * AccessTokenExpiry) }

	_, token, err := svc.GenerateAccessToken(uuid.New(), model.RoleUser)
	require.NoError(t, err)

	_, err = NewJWTService("test-secret").ValidateAccessToken(token)
	assert.Error(t, err)
}
