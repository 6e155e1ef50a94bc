package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/chatline/internal/domain"
)

// UserContextKey is where Auth stores the verified *domain.User.
const UserContextKey = "user"

// Authenticator resolves a signed token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// Auth creates a middleware that protects routes that require authentication.
// HTTP handlers and the websocket upgrade share it, so both are bound to the
// same verified credential.
func Auth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := TokenFromRequest(c)
			if token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Unauthorized - No Token Provided"})
			}

			user, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil || user == nil {
				FromContext(c.Request().Context()).Debug("Rejected auth token", "event", "auth_invalid_token", "error", err)
				_ = ClearToken(c)
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Unauthorized - Invalid Token"})
			}

			c.Set(UserContextKey, user)
			return next(c)
		}
	}
}

// PageAuth is Auth for browser pages: a missing or rejected token redirects
// to loginPath instead of answering 401.
func PageAuth(auth Authenticator, loginPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := TokenFromRequest(c)
			if token == "" {
				return c.Redirect(http.StatusSeeOther, loginPath)
			}
			user, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil || user == nil {
				_ = ClearToken(c)
				return c.Redirect(http.StatusSeeOther, loginPath)
			}
			c.Set(UserContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by Auth.
func CurrentUser(c echo.Context) (*domain.User, bool) {
	user, ok := c.Get(UserContextKey).(*domain.User)
	return user, ok && user != nil
}
