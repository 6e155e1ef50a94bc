package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	// SessionName is the cookie session that carries the signed auth token.
	SessionName = "chatline_session"
	sessionKey  = "token"
	// TokenQueryParam lets websocket clients that cannot set headers pass the token.
	TokenQueryParam = "token"
)

// SaveToken stores the auth token in the cookie session.
func SaveToken(c echo.Context, token string, ttl time.Duration) error {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return err
	}
	sess.Options = cookieOptions(c, int(ttl.Seconds()))
	sess.Values[sessionKey] = token
	return sess.Save(c.Request(), c.Response())
}

// ClearToken expires the cookie session.
func ClearToken(c echo.Context) error {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return err
	}
	sess.Options = cookieOptions(c, -1)
	delete(sess.Values, sessionKey)
	return sess.Save(c.Request(), c.Response())
}

// TokenFromRequest finds the auth token in the session cookie, an
// Authorization bearer header, or the token query parameter, in that order.
func TokenFromRequest(c echo.Context) string {
	if sess, err := session.Get(SessionName, c); err == nil {
		if token, ok := sess.Values[sessionKey].(string); ok && token != "" {
			return token
		}
	}
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok && token != "" {
			return strings.TrimSpace(token)
		}
	}
	return c.QueryParam(TokenQueryParam)
}

func cookieOptions(c echo.Context, maxAge int) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		// Secure only under TLS so local development over plain HTTP still works.
		Secure:   c.Request().TLS != nil,
		SameSite: http.SameSiteStrictMode,
	}
}
