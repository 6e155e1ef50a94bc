package handlers

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/chatline/internal/domain"
	"github.com/nfrund/chatline/internal/middleware"
)

// MessageNotifier is told about each message after it is stored.
type MessageNotifier interface {
	NotifyMessageSaved(ctx context.Context, msg *domain.Message) error
}

// MessageHandler serves /api/messages.
type MessageHandler struct {
	users    domain.UserRepository
	messages domain.MessageRepository
	media    ImageSaver
	notifier MessageNotifier
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(users domain.UserRepository, messages domain.MessageRepository, media ImageSaver, notifier MessageNotifier) *MessageHandler {
	return &MessageHandler{users: users, messages: messages, media: media, notifier: notifier}
}

// Users handles GET /api/messages/users: everyone but the caller.
func (h *MessageHandler) Users(c echo.Context) error {
	me, ok := middleware.CurrentUser(c)
	if !ok {
		return jsonMessage(c, http.StatusUnauthorized, "Unauthorized - No Token Provided")
	}
	users, err := h.users.ListUsersExcept(c.Request().Context(), me.ID)
	if err != nil {
		return errorResponse(c, err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return c.JSON(http.StatusOK, users)
}

// History handles GET /api/messages/:id: the conversation with :id, oldest first.
func (h *MessageHandler) History(c echo.Context) error {
	me, ok := middleware.CurrentUser(c)
	if !ok {
		return jsonMessage(c, http.StatusUnauthorized, "Unauthorized - No Token Provided")
	}
	messages, err := h.messages.FindMessagesBetween(c.Request().Context(), me.ID, c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return c.JSON(http.StatusOK, messages)
}

// Send handles POST /api/messages/send/:id. The message is stored first and
// only then handed to the notifier for live delivery.
func (h *MessageHandler) Send(c echo.Context) error {
	me, ok := middleware.CurrentUser(c)
	if !ok {
		return jsonMessage(c, http.StatusUnauthorized, "Unauthorized - No Token Provided")
	}

	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return jsonMessage(c, http.StatusBadRequest, "Invalid request body")
	}
	image, err := formFile(c, "image")
	if err != nil {
		return jsonMessage(c, http.StatusBadRequest, "Error while uploading file")
	}

	saved, err := h.send(c, me, c.Param("id"), req, image)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, saved)
}

// send validates, stores and announces one message from me to receiverID.
// The JSON API and the chat page share it.
func (h *MessageHandler) send(c echo.Context, me *domain.User, receiverID string, req SendMessageRequest, image *multipart.FileHeader) (*domain.Message, error) {
	ctx := c.Request().Context()
	log := middleware.FromContext(ctx)

	req.Text = normalizeText(req.Text)
	if err := c.Validate(&req); err != nil {
		return nil, err
	}
	if req.Text == "" && image == nil {
		return nil, domain.ErrEmptyMessage
	}
	if _, err := h.users.FindByID(ctx, receiverID); err != nil {
		return nil, err
	}

	msg := domain.NewMessage{SenderID: me.ID, ReceiverID: receiverID}
	if req.Text != "" {
		msg.Text = &req.Text
	}
	if image != nil {
		url, err := h.media.SaveImage(ctx, me.ID, image)
		if err != nil {
			return nil, err
		}
		msg.ImageURL = &url
	}

	saved, err := h.messages.SaveMessage(ctx, msg)
	if err != nil {
		return nil, err
	}

	// The message is durable; a failed live push only costs immediacy.
	if err := h.notifier.NotifyMessageSaved(ctx, saved); err != nil {
		log.Warn("Failed to announce saved message", "event", "message_notify_failure", "message_id", saved.ID, "error", err)
	}
	log.Debug("Message sent", "event", "message_sent", "message_id", saved.ID, "receiver_id", receiverID)
	return saved, nil
}
