package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/chatline/internal/domain"
	"github.com/nfrund/chatline/internal/middleware"
	"github.com/nfrund/chatline/internal/view"
)

// HomeHandler renders the landing page.
type HomeHandler struct {
	auth middleware.Authenticator
}

// NewHomeHandler creates a new HomeHandler.
func NewHomeHandler(auth middleware.Authenticator) *HomeHandler {
	return &HomeHandler{auth: auth}
}

// HomeGet handles GET /. The page is public; a valid session only adds the presence panel.
func (h *HomeHandler) HomeGet(c echo.Context) error {
	var user *domain.User
	if token := middleware.TokenFromRequest(c); token != "" {
		if u, err := h.auth.Authenticate(c.Request().Context(), token); err == nil {
			user = u
		}
	}
	return c.Render(http.StatusOK, "", view.Layout("Home", view.FromNode(view.Home(user))))
}
