// Package middleware holds the echo middleware shared by the API routes.
package middleware

import (
	"context"
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"marketplace/internal/auth"
	"marketplace/internal/errors"
	"marketplace/internal/model"
)

const (
	principalContextKey = "principal"
	claimsContextKey    = "claims"
)

// Authenticator turns validated access-token claims into a Principal.
type Authenticator interface {
	Authenticate(ctx context.Context, claims *auth.Claims) (auth.Principal, error)
}

// RequireAuth rejects requests without a valid bearer access token. On
// success the resolved Principal and the token claims are stored on the
// echo context.
func RequireAuth(jwtService *auth.JWTService, authn Authenticator) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ContextKey:  claimsContextKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := jwtService.ValidateAccessToken(token)
			if err != nil {
				return nil, errors.ErrInvalidToken
			}
			principal, err := authn.Authenticate(c.Request().Context(), claims)
			if err != nil {
				if errors.Is(err, errors.ErrInvalidToken) || errors.Is(err, errors.ErrAccountBanned) {
					return nil, err
				}
				return nil, &resolveError{err: err}
			}
			c.Set(principalContextKey, principal)
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var re *resolveError
			switch {
			case errors.Is(err, errors.ErrAccountBanned):
				return reject(http.StatusForbidden, err)
			case errors.As(err, &re):
				he := echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
					Error: "internal server error",
					Code:  "INTERNAL_ERROR",
				})
				return he.SetInternal(re.err)
			default:
				// missing header, bad signature, expired or revoked token
				return reject(http.StatusUnauthorized, errors.ErrUnauthenticated)
			}
		},
	})
}

// resolveError marks a store failure while loading the principal, as opposed
// to a bad token.
type resolveError struct{ err error }

func (e *resolveError) Error() string { return e.err.Error() }
func (e *resolveError) Unwrap() error { return e.err }

func reject(status int, err error) error {
	mapped := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(status, mapped.ToErrorResponse())
}

// RequireRoles allows the request through only when the authenticated
// principal holds one of roles. It must run after RequireAuth.
func RequireRoles(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFrom(c)
			if !p.Authenticated() {
				return reject(http.StatusUnauthorized, errors.ErrUnauthenticated)
			}
			if !auth.RoleIn(p.Role, roles...) {
				return reject(http.StatusForbidden, errors.ErrForbidden)
			}
			return next(c)
		}
	}
}

// PrincipalFrom returns the caller set by RequireAuth, or the zero Principal
// on public routes.
func PrincipalFrom(c echo.Context) auth.Principal {
	p, _ := c.Get(principalContextKey).(auth.Principal)
	return p
}

// ClaimsFrom returns the access-token claims set by RequireAuth.
func ClaimsFrom(c echo.Context) *auth.Claims {
	claims, _ := c.Get(claimsContextKey).(*auth.Claims)
	return claims
}
