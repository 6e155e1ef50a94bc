package handlers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// CustomValidator wraps the go-playground/validator library to implement Echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	FullName string `json:"fullName" form:"fullName" validate:"required,max=100"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6,max=72"`
}

func (r *SignupRequest) normalize() {
	r.FullName = normalizeText(r.FullName)
	r.Email = normalizeEmail(r.Email)
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// UpdateProfileRequest carries the text fields of PUT /api/auth/update-profile.
// The picture arrives as the profilePic multipart file.
type UpdateProfileRequest struct {
	FullName string `json:"fullName" form:"fullName" validate:"max=100"`
}

// SendMessageRequest carries the text of POST /api/messages/send/:id. An
// image arrives as the image multipart file.
type SendMessageRequest struct {
	Text string `json:"text" form:"text" validate:"max=4000"`
}

func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// validationMessage turns validator errors into the client-facing message.
// Missing fields win over length, and length over format.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid input"
	}
	find := func(tag string) validator.FieldError {
		for _, fe := range verrs {
			if fe.Tag() == tag {
				return fe
			}
		}
		return nil
	}
	if find("required") != nil {
		return "All fields are required"
	}
	if fe := find("min"); fe != nil && fe.Field() == "Password" {
		return "Password must be at least 6 characters"
	}
	if find("email") != nil {
		return "Invalid email format"
	}
	if fe := find("max"); fe != nil {
		return fe.Field() + " is too long"
	}
	return "Invalid input"
}
