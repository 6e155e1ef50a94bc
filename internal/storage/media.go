package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/chatline/internal/domain"
	"github.com/nfrund/chatline/internal/middleware"
)

// URLPrefix is where stored media is served from.
const URLPrefix = "/media/"

var (
	ErrFileTooLarge    = errors.New("file exceeds the upload size limit")
	ErrUnsupportedType = errors.New("file type is not allowed")
)

// MediaStore saves user images and serves them back under URLPrefix.
type MediaStore struct {
	store        Store
	maxBytes     int64
	allowedTypes []string
	now          func() time.Time
}

// NewMediaStore creates a MediaStore. Uploads larger than maxBytes or whose
// sniffed type is not in allowedTypes are rejected.
func NewMediaStore(store Store, maxBytes int64, allowedTypes []string) *MediaStore {
	return &MediaStore{
		store:        store,
		maxBytes:     maxBytes,
		allowedTypes: allowedTypes,
		now:          time.Now,
	}
}

// SaveImage stores an uploaded image for userID and returns its public URL.
func (m *MediaStore) SaveImage(ctx context.Context, userID string, fh *multipart.FileHeader) (string, error) {
	if m.maxBytes > 0 && fh.Size > m.maxBytes {
		return "", ErrFileTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	mime, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("detect upload type: %w", err)
	}
	if !m.allowed(mime) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mime.String())
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	key := StoragePath(userID, fh.Filename, m.now())
	var body io.Reader = src
	if m.maxBytes > 0 {
		// The header size is client supplied.
		body = io.LimitReader(src, m.maxBytes+1)
	}
	n, err := m.store.Save(ctx, key, body)
	if err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	if m.maxBytes > 0 && n > m.maxBytes {
		_ = m.store.Delete(ctx, key)
		return "", ErrFileTooLarge
	}
	return URLPrefix + key, nil
}

func (m *MediaStore) allowed(mime *mimetype.MIME) bool {
	for t := mime; t != nil; t = t.Parent() {
		if slices.Contains(m.allowedTypes, t.String()) {
			return true
		}
	}
	return false
}

// StoragePath builds users/<userID>/<unixnano>-<basename>.
func StoragePath(userID, filename string, at time.Time) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		base = "upload"
	}
	base = strings.ReplaceAll(base, " ", "_")
	return path.Join("users", userID, fmt.Sprintf("%d-%s", at.UnixNano(), base))
}

// Handler serves GET /media/* from the store.
func (m *MediaStore) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Param("*")
		if !domain.IsSafePath(key) {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid media path"})
		}

		f, err := m.store.Open(c.Request().Context(), key)
		if errors.Is(err, os.ErrNotExist) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Media not found"})
		}
		if err != nil {
			middleware.FromContext(c.Request().Context()).Error("Failed to open media", "event", "media_open_failure", "path", key, "error", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Could not retrieve media"})
		}
		defer f.Close()

		head := make([]byte, 512)
		n, err := io.ReadFull(f, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Could not retrieve media"})
		}
		head = head[:n]

		c.Response().Header().Set("Cache-Control", "private, max-age=86400")
		c.Response().Header().Set("X-Content-Type-Options", "nosniff")
		return c.Stream(http.StatusOK, mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), f))
	}
}
