package domain

import "errors"

// Sentinel errors for the domain layer. Handlers map these to HTTP statuses.
var (
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("requested resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmptyMessage       = errors.New("message must have text or image")
	ErrNoChanges          = errors.New("no changes made")
)
