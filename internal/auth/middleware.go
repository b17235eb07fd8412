package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/balkashynov/hourly/internal/models"
)

// UserLoader resolves the user behind a token, so disabled accounts and role
// changes take effect before the token expires.
type UserLoader func(ctx context.Context, id uint) (*models.User, error)

// Skipper excludes public routes.
type Skipper func(c echo.Context) bool

// Middleware enforces bearer-token authentication and puts the user on the request context.
func Middleware(tokens *Tokens, load UserLoader, skip Skipper) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}
			raw, err := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return unauthorized(err)
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				return unauthorized(err)
			}
			ctx := c.Request().Context()
			user, err := load(ctx, claims.UserID)
			if err != nil || !user.Enabled {
				return unauthorized(ErrInvalidToken)
			}
			ctx = WithUser(WithClaims(ctx, claims), user)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func unauthorized(err error) *echo.HTTPError {
	msg := "invalid bearer token"
	if errors.Is(err, ErrMissingToken) {
		msg = "missing bearer token"
	}
	return echo.NewHTTPError(http.StatusUnauthorized, msg).SetInternal(err)
}
