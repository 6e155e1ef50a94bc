package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/chatline/internal/domain"
	"github.com/nfrund/chatline/internal/view"
)

// OnlineLister reports the users with a live connection.
type OnlineLister interface {
	Online() []string
}

// PresenceHandler serves the presence snapshot as JSON and as an htmx fragment.
type PresenceHandler struct {
	presence OnlineLister
	users    domain.UserRepository
}

// NewPresenceHandler creates a new PresenceHandler.
func NewPresenceHandler(presence OnlineLister, users domain.UserRepository) *PresenceHandler {
	return &PresenceHandler{presence: presence, users: users}
}

// GetPresence handles GET /api/presence.
func (h *PresenceHandler) GetPresence(c echo.Context) error {
	return c.JSON(http.StatusOK, PresenceResponse{Online: h.presence.Online()})
}

// GetPresenceHTML handles GET /presence/fragment.
func (h *PresenceHandler) GetPresenceHTML(c echo.Context) error {
	ctx := c.Request().Context()
	ids := h.presence.Online()
	online := make([]view.OnlineUser, 0, len(ids))
	for _, id := range ids {
		name := id
		if u, err := h.users.FindByID(ctx, id); err == nil {
			name = u.FullName
		}
		online = append(online, view.OnlineUser{ID: id, Name: name})
	}
	return c.Render(http.StatusOK, "", view.OnlineUsers(online))
}
