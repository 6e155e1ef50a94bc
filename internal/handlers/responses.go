package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/chatline/internal/domain"
	"github.com/nfrund/chatline/internal/middleware"
	"github.com/nfrund/chatline/internal/storage"
)

// MessageResponse is the body of every error and of plain acknowledgements.
type MessageResponse struct {
	Message string `json:"message"`
}

// PresenceResponse is the body of GET /api/presence.
type PresenceResponse struct {
	Online []string `json:"online"`
}

func jsonMessage(c echo.Context, status int, msg string) error {
	return c.JSON(status, MessageResponse{Message: msg})
}

// describeError maps domain and storage errors to a status and a
// client-facing message. ok is false for anything unrecognised.
func describeError(err error) (status int, msg string, ok bool) {
	switch {
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return http.StatusBadRequest, "User with this email already exists", true
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusBadRequest, "Invalid credentials", true
	case errors.Is(err, domain.ErrNoChanges):
		return http.StatusBadRequest, "No changes made", true
	case errors.Is(err, domain.ErrEmptyMessage):
		return http.StatusBadRequest, "Message must have text or image", true
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid input", true
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "User not found", true
	case errors.Is(err, storage.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "File too large", true
	case errors.Is(err, storage.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, "Unsupported file type", true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, validationMessage(err), true
	}
	return http.StatusInternalServerError, "Internal Server Error", false
}

// errorResponse writes err as a JSON message. Unrecognised errors are logged
// and reported as a 500.
func errorResponse(c echo.Context, err error) error {
	status, msg, ok := describeError(err)
	if !ok {
		logHandlerError(c, err)
	}
	return jsonMessage(c, status, msg)
}

func logHandlerError(c echo.Context, err error) {
	middleware.FromContext(c.Request().Context()).Error("Request failed", "event", "handler_error", "path", c.Path(), "error", err)
}
