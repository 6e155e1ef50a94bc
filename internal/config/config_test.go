package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SURREAL_URL", "ws://localhost:8000/rpc")
	t.Setenv("SURREAL_NS", "test")
	t.Setenv("SURREAL_DB", "chatline")
	t.Setenv("SESSION_SECRET", "session-secret")
	t.Setenv("JWT_SECRET", "jwt-secret")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, StoreSurreal, cfg.GetStoreBackend())
	assert.Equal(t, ":8080", cfg.GetServerAddr())
	assert.Equal(t, 7*24*time.Hour, cfg.GetJWTTTL())
	assert.Equal(t, int64(5<<20), cfg.GetMaxUploadBytes())
	assert.Contains(t, cfg.GetAllowedImageTypes(), "image/png")
	assert.Equal(t, 5*time.Second, cfg.GetDBQueryTimeout())
}

func TestFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("ALLOWED_IMAGE_TYPES", " image/png , ,image/gif")
	t.Setenv("DB_QUERY_TIMEOUT", "not-a-duration")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.GetJWTTTL())
	assert.Equal(t, int64(1024), cfg.GetMaxUploadBytes())
	assert.Equal(t, []string{"image/png", "image/gif"}, cfg.GetAllowedImageTypes())
	assert.Equal(t, 5*time.Second, cfg.GetDBQueryTimeout(), "invalid values fall back to the default")
}

func TestFromEnv_MissingRequired(t *testing.T) {
	t.Setenv("SURREAL_URL", "")
	t.Setenv("SURREAL_NS", "")
	t.Setenv("SURREAL_DB", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SURREAL_URL")
	assert.Contains(t, err.Error(), "SESSION_SECRET")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestFromEnv_MemoryStoreSkipsDatabase(t *testing.T) {
	t.Setenv("STORE", StoreMemory)
	t.Setenv("SURREAL_URL", "")
	t.Setenv("SURREAL_NS", "")
	t.Setenv("SURREAL_DB", "")
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("JWT_SECRET", "j")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.GetStoreBackend())
}
