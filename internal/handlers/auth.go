package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/chatline/internal/domain"
	"github.com/nfrund/chatline/internal/middleware"
)

// ImageSaver stores an uploaded image and returns its public URL.
type ImageSaver interface {
	SaveImage(ctx context.Context, userID string, fh *multipart.FileHeader) (string, error)
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	users    domain.UserRepository
	media    ImageSaver
	tokenTTL time.Duration
}

// NewAuthHandler creates a new AuthHandler. tokenTTL sets the session cookie lifetime.
func NewAuthHandler(users domain.UserRepository, media ImageSaver, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{users: users, media: media, tokenTTL: tokenTTL}
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return jsonMessage(c, http.StatusBadRequest, "Invalid request body")
	}
	user, err := h.signup(c, &req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

// signup creates the account and starts its session.
func (h *AuthHandler) signup(c echo.Context, req *SignupRequest) (*domain.User, error) {
	req.normalize()
	if err := c.Validate(req); err != nil {
		return nil, err
	}

	user := &domain.User{FullName: req.FullName, Email: req.Email}
	token, err := h.users.SignUp(c.Request().Context(), user, req.Password)
	if err != nil {
		return nil, err
	}
	if err := middleware.SaveToken(c, token, h.tokenTTL); err != nil {
		return nil, err
	}

	middleware.FromContext(c.Request().Context()).Info("User signed up", "event", "auth_signup", "user_id", user.ID)
	return user, nil
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return jsonMessage(c, http.StatusBadRequest, "Invalid request body")
	}
	user, err := h.login(c, &req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) login(c echo.Context, req *LoginRequest) (*domain.User, error) {
	req.Email = normalizeEmail(req.Email)
	if err := c.Validate(req); err != nil {
		return nil, err
	}

	token, user, err := h.users.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			middleware.FromContext(c.Request().Context()).Info("Login rejected", "event", "auth_login_rejected")
		}
		return nil, err
	}
	if err := middleware.SaveToken(c, token, h.tokenTTL); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout handles POST /api/auth/logout. It succeeds even without a session.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := middleware.ClearToken(c); err != nil {
		middleware.FromContext(c.Request().Context()).Warn("Failed to clear session", "event", "auth_logout_failure", "error", err)
	}
	return jsonMessage(c, http.StatusOK, "Logged out successfully")
}

// UpdateProfile handles PUT /api/auth/update-profile.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return jsonMessage(c, http.StatusUnauthorized, "Unauthorized - No Token Provided")
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return jsonMessage(c, http.StatusBadRequest, "Invalid request body")
	}
	pic, err := formFile(c, "profilePic")
	if err != nil {
		return jsonMessage(c, http.StatusBadRequest, "Error with file upload")
	}

	updated, err := h.updateProfile(c, user, req, pic)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *AuthHandler) updateProfile(c echo.Context, user *domain.User, req UpdateProfileRequest, pic *multipart.FileHeader) (*domain.User, error) {
	req.FullName = normalizeText(req.FullName)
	if err := c.Validate(&req); err != nil {
		return nil, err
	}

	var update domain.ProfileUpdate
	if req.FullName != "" {
		update.FullName = &req.FullName
	}
	if pic == nil && update.Empty() {
		return nil, domain.ErrNoChanges
	}

	ctx := c.Request().Context()
	if pic != nil {
		url, err := h.media.SaveImage(ctx, user.ID, pic)
		if err != nil {
			return nil, err
		}
		update.ProfilePic = &url
	}
	return h.users.UpdateProfile(ctx, user.ID, update)
}

// Check handles GET /api/auth/check.
func (h *AuthHandler) Check(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return jsonMessage(c, http.StatusUnauthorized, "Unauthorized - No Token Provided")
	}
	return c.JSON(http.StatusOK, user)
}

// formFile returns the named upload, or nil when the request is not
// multipart or carries no such file.
func formFile(c echo.Context, field string) (*multipart.FileHeader, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	return fh, err
}
