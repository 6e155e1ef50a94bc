package domain

import (
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validatorInstance is a package-level validator instance.
// Using a single instance is more efficient as it caches struct information.
var validatorInstance = validator.New()

func init() {
	_ = validatorInstance.RegisterValidation("safepath", validateSafePath)
	_ = validatorInstance.RegisterValidation("safeurl", validateSafeURL)
}

// validateSafePath ensures the path doesn't contain any directory traversal attempts.
func validateSafePath(fl validator.FieldLevel) bool {
	return IsSafePath(fl.Field().String())
}

// validateSafeURL accepts absolute http(s) URLs and site-relative media paths.
func validateSafeURL(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		return true
	}
	if rest, ok := strings.CutPrefix(v, "/media/"); ok {
		return IsSafePath(rest)
	}
	return false
}

// IsSafePath reports whether path is a clean relative path with no traversal.
func IsSafePath(path string) bool {
	if path == "" ||
		strings.Contains(path, "..") ||
		strings.Contains(path, "~") ||
		strings.HasPrefix(path, "/") ||
		strings.Contains(path, "\\") {
		return false
	}
	// Catches more subtle issues like "uploads/./file".
	return path == filepath.Clean(path)
}
