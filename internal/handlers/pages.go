package handlers

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/chatline/internal/domain"
	"github.com/nfrund/chatline/internal/middleware"
	"github.com/nfrund/chatline/internal/view"
	cmp "maragu.dev/gomponents"
)

// PageHandler serves the browser client: login and signup forms, the chat
// page and the profile page. It reuses the API handlers' logic, so both
// surfaces share validation, storage and live delivery.
type PageHandler struct {
	auth     *AuthHandler
	messages *MessageHandler
	presence OnlineLister
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(auth *AuthHandler, messages *MessageHandler, presence OnlineLister) *PageHandler {
	return &PageHandler{auth: auth, messages: messages, presence: presence}
}

func renderPage(c echo.Context, status int, title string, body cmp.Node) error {
	return c.Render(status, "", view.Layout(title, view.FromNode(body)))
}

// LoginGet handles GET /login.
func (h *PageHandler) LoginGet(c echo.Context) error {
	return renderPage(c, http.StatusOK, "Log in", view.LoginPage(view.AuthForm{}))
}

// LoginPost handles POST /login.
func (h *PageHandler) LoginPost(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return renderPage(c, http.StatusBadRequest, "Log in", view.LoginPage(view.AuthForm{Error: "Invalid request body"}))
	}
	if _, err := h.auth.login(c, &req); err != nil {
		status, msg := h.pageError(c, err)
		return renderPage(c, status, "Log in", view.LoginPage(view.AuthForm{Email: req.Email, Error: msg}))
	}
	return c.Redirect(http.StatusSeeOther, "/chat")
}

// SignupGet handles GET /signup.
func (h *PageHandler) SignupGet(c echo.Context) error {
	return renderPage(c, http.StatusOK, "Sign up", view.SignupPage(view.AuthForm{}))
}

// SignupPost handles POST /signup.
func (h *PageHandler) SignupPost(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return renderPage(c, http.StatusBadRequest, "Sign up", view.SignupPage(view.AuthForm{Error: "Invalid request body"}))
	}
	if _, err := h.auth.signup(c, &req); err != nil {
		status, msg := h.pageError(c, err)
		form := view.AuthForm{FullName: req.FullName, Email: req.Email, Error: msg}
		return renderPage(c, status, "Sign up", view.SignupPage(form))
	}
	return c.Redirect(http.StatusSeeOther, "/chat")
}

// LogoutPost handles POST /logout.
func (h *PageHandler) LogoutPost(c echo.Context) error {
	if err := middleware.ClearToken(c); err != nil {
		middleware.FromContext(c.Request().Context()).Warn("Failed to clear session", "event", "auth_logout_failure", "error", err)
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// Chat handles GET /chat and GET /chat/:id.
func (h *PageHandler) Chat(c echo.Context) error {
	me, ok := middleware.CurrentUser(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	return h.renderChat(c, http.StatusOK, me, c.Param("id"), "")
}

func (h *PageHandler) renderChat(c echo.Context, status int, me *domain.User, peerID, sendError string) error {
	ctx := c.Request().Context()
	contacts, err := h.contacts(c, me)
	if err != nil {
		return h.pageFailure(c, err)
	}

	var (
		peer     *domain.User
		messages []domain.Message
	)
	if peerID != "" {
		if peer, err = h.messages.users.FindByID(ctx, peerID); err != nil {
			return h.pageFailure(c, err)
		}
		if messages, err = h.messages.messages.FindMessagesBetween(ctx, me.ID, peer.ID); err != nil {
			return h.pageFailure(c, err)
		}
	}

	title := "Chats"
	if peer != nil {
		title = peer.FullName
	}
	return renderPage(c, status, title, view.ChatPage(me, contacts, peer, messages, sendError))
}

// contacts lists everyone but me, marked online from the presence tracker.
func (h *PageHandler) contacts(c echo.Context, me *domain.User) ([]view.Contact, error) {
	users, err := h.messages.users.ListUsersExcept(c.Request().Context(), me.ID)
	if err != nil {
		return nil, err
	}
	online := h.presence.Online()
	contacts := make([]view.Contact, 0, len(users))
	for _, u := range users {
		contacts = append(contacts, view.Contact{
			ID:         u.ID,
			FullName:   u.FullName,
			ProfilePic: u.ProfilePic,
			Online:     slices.Contains(online, u.ID),
		})
	}
	return contacts, nil
}

// Sidebar handles GET /chat/sidebar, the fragment the sidebar polls.
func (h *PageHandler) Sidebar(c echo.Context) error {
	me, ok := middleware.CurrentUser(c)
	if !ok {
		return c.NoContent(http.StatusUnauthorized)
	}
	contacts, err := h.contacts(c, me)
	if err != nil {
		return h.fragmentFailure(c, err)
	}
	return c.Render(http.StatusOK, "", view.Sidebar(contacts, c.QueryParam("active")))
}

// Messages handles GET /chat/:id/messages, the fragment the conversation polls.
func (h *PageHandler) Messages(c echo.Context) error {
	me, ok := middleware.CurrentUser(c)
	if !ok {
		return c.NoContent(http.StatusUnauthorized)
	}
	messages, err := h.messages.messages.FindMessagesBetween(c.Request().Context(), me.ID, c.Param("id"))
	if err != nil {
		return h.fragmentFailure(c, err)
	}
	return c.Render(http.StatusOK, "", view.MessageList(me.ID, messages))
}

// Send handles POST /chat/:id/messages. htmx gets the refreshed list back;
// a plain form post is redirected to the conversation.
func (h *PageHandler) Send(c echo.Context) error {
	me, ok := middleware.CurrentUser(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	peerID := c.Param("id")

	var req SendMessageRequest
	sendErr := ""
	status := http.StatusOK
	if err := c.Bind(&req); err != nil {
		status, sendErr = http.StatusBadRequest, "Invalid request body"
	} else if image, err := formFile(c, "image"); err != nil {
		status, sendErr = http.StatusBadRequest, "Error while uploading file"
	} else if _, err := h.messages.send(c, me, peerID, req, image); err != nil {
		status, sendErr = h.pageError(c, err)
	}

	if !isHTMX(c) {
		if sendErr == "" {
			return c.Redirect(http.StatusSeeOther, "/chat/"+peerID)
		}
		return h.renderChat(c, status, me, peerID, sendErr)
	}

	// htmx only swaps 2xx responses, so a rejected send still answers 200
	// and reports through the error slot.
	messages, err := h.messages.messages.FindMessagesBetween(c.Request().Context(), me.ID, peerID)
	if err != nil {
		return h.fragmentFailure(c, err)
	}
	return c.Render(http.StatusOK, "", view.SendResult(me.ID, messages, sendErr))
}

// ProfileGet handles GET /profile.
func (h *PageHandler) ProfileGet(c echo.Context) error {
	me, ok := middleware.CurrentUser(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	return renderPage(c, http.StatusOK, "Profile", view.ProfilePage(me, "", ""))
}

// ProfilePost handles POST /profile.
func (h *PageHandler) ProfilePost(c echo.Context) error {
	me, ok := middleware.CurrentUser(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return renderPage(c, http.StatusBadRequest, "Profile", view.ProfilePage(me, "", "Invalid request body"))
	}
	pic, err := formFile(c, "profilePic")
	if err != nil {
		return renderPage(c, http.StatusBadRequest, "Profile", view.ProfilePage(me, "", "Error with file upload"))
	}

	updated, err := h.auth.updateProfile(c, me, req, pic)
	if err != nil {
		status, msg := h.pageError(c, err)
		return renderPage(c, status, "Profile", view.ProfilePage(me, "", msg))
	}
	return renderPage(c, http.StatusOK, "Profile", view.ProfilePage(updated, "Profile updated", ""))
}

// pageError turns err into a status and a message for a form. Unrecognised
// errors are logged.
func (h *PageHandler) pageError(c echo.Context, err error) (int, string) {
	status, msg, ok := describeError(err)
	if !ok {
		logHandlerError(c, err)
	}
	return status, msg
}

func (h *PageHandler) pageFailure(c echo.Context, err error) error {
	status, msg := h.pageError(c, err)
	return c.String(status, msg)
}

func (h *PageHandler) fragmentFailure(c echo.Context, err error) error {
	status, msg := h.pageError(c, err)
	return c.Render(status, "", view.SendError(msg))
}

func isHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}
