// Package middleware holds the request guards shared by the HTTP routes.
package middleware

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"peerhelp/internal/apperr"
	"peerhelp/internal/auth"
	"peerhelp/internal/model"
)

const (
	tokenKey     = "token"
	claimsKey    = "claims"
	principalKey = "principal"

	// TokenLookup reads the access token from the bearer header first, then
	// from the httpOnly cookie set at login.
	TokenLookup = "header:Authorization:Bearer ,cookie:token"
)

// Authenticator resolves validated claims to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, claims *auth.Claims) (*model.User, error)
}

// SessionGuard validates the access token, rejects logged out sessions and
// blocked accounts, and stores the principal on the context.
func SessionGuard(secret []byte, sessions Authenticator) echo.MiddlewareFunc {
	parse := echojwt.WithConfig(echojwt.Config{
		SigningKey:    secret,
		SigningMethod: "HS256",
		TokenLookup:   TokenLookup,
		ContextKey:    tokenKey,
		NewClaimsFunc: func(echo.Context) jwt.Claims { return new(auth.Claims) },
		ErrorHandler: func(c echo.Context, err error) error {
			var parseErr *echojwt.TokenParsingError
			if errors.As(err, &parseErr) {
				return apperr.Unauthenticated("Unauthorized")
			}
			return apperr.Unauthenticated("No token provided")
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return parse(func(c echo.Context) error {
			token, ok := c.Get(tokenKey).(*jwt.Token)
			if !ok {
				return apperr.Unauthenticated("Unauthorized")
			}
			claims, ok := token.Claims.(*auth.Claims)
			if !ok {
				return apperr.Unauthenticated("Unauthorized")
			}

			user, err := sessions.Authenticate(c.Request().Context(), claims)
			if err != nil {
				return err
			}
			c.Set(claimsKey, claims)
			c.Set(principalKey, user)
			return next(c)
		})
	}
}

// AdminOnly rejects principals without the admin role. It must run after
// SessionGuard.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := Principal(c)
		if user == nil || !user.IsAdmin() {
			return apperr.ErrAdminOnly
		}
		return next(c)
	}
}

// Principal returns the authenticated user, or nil on public routes.
func Principal(c echo.Context) *model.User {
	user, _ := c.Get(principalKey).(*model.User)
	return user
}

// Claims returns the access token claims of the request.
func Claims(c echo.Context) *auth.Claims {
	claims, _ := c.Get(claimsKey).(*auth.Claims)
	return claims
}

// SetPrincipal stores user as the request principal.
func SetPrincipal(c echo.Context, user *model.User) {
	c.Set(principalKey, user)
}
