package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/auth"
	"marketplace/internal/errors"
	"marketplace/internal/model"
)

type stubAuthenticator struct {
	principal auth.Principal
	err       error
}

func (s stubAuthenticator) Authenticate(ctx context.Context, claims *auth.Claims) (auth.Principal, error) {
	if s.err != nil {
		return auth.Principal{}, s.err
	}
	p := s.principal
	p.UserID = claims.UserID
	return p, nil
}

func newProtectedServer(jwtService *auth.JWTService, authn Authenticator, extra ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	handlers := append([]echo.MiddlewareFunc{RequireAuth(jwtService, authn)}, extra...)
	e.GET("/protected", func(c echo.Context) error {
		p := PrincipalFrom(c)
		claims := ClaimsFrom(c)
		if claims == nil || claims.UserID != p.UserID {
			return c.String(http.StatusTeapot, "claims missing")
		}
		return c.String(http.StatusOK, string(p.Role))
	}, handlers...)
	return e
}

func get(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	userID := uuid.New()
	_, access, err := jwtService.GenerateAccessToken(userID, model.RoleUser)
	require.NoError(t, err)
	_, refresh, err := jwtService.GenerateRefreshToken(userID)
	require.NoError(t, err)

	tests := []struct {
		name       string
		token      string
		authn      Authenticator
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid token",
			token:      access,
			authn:      stubAuthenticator{principal: auth.Principal{Role: model.RoleModerator}},
			wantStatus: http.StatusOK,
			wantBody:   "moderator",
		},
		{
			name:       "missing token",
			authn:      stubAuthenticator{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			token:      "not-a-jwt",
			authn:      stubAuthenticator{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "refresh token used as access token",
			token:      refresh,
			authn:      stubAuthenticator{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "revoked token",
			token:      access,
			authn:      stubAuthenticator{err: errors.ErrInvalidToken},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "banned account",
			token:      access,
			authn:      stubAuthenticator{err: errors.ErrAccountBanned},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "store failure",
			token:      access,
			authn:      stubAuthenticator{err: assert.AnError},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(newProtectedServer(jwtService, tt.authn), tt.token)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	_, access, err := jwtService.GenerateAccessToken(uuid.New(), model.RoleUser)
	require.NoError(t, err)

	admins := RequireRoles(model.RoleAdmin, model.RoleOwner)

	rec := get(newProtectedServer(jwtService, stubAuthenticator{principal: auth.Principal{Role: model.RoleUser}}, admins), access)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")

	rec = get(newProtectedServer(jwtService, stubAuthenticator{principal: auth.Principal{Role: model.RoleOwner}}, admins), access)
	assert.Equal(t, http.StatusOK, rec.Code)

	// without RequireAuth in front there is no principal
	e := echo.New()
	e.GET("/protected", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, admins)
	assert.Equal(t, http.StatusUnauthorized, get(e, "").Code)
}
