// Package testutils holds helpers shared by package tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/nfrund/chatline/internal/config"
)

// ConfigForTests returns an in-memory configuration with fixed secrets and a
// media directory under t.TempDir.
func ConfigForTests(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		StoreBackend:      config.StoreMemory,
		ServerAddr:        "127.0.0.1:0",
		AppBaseURL:        "http://localhost",
		SessionSecret:     "test-session-secret",
		JWTSecret:         "test-jwt-secret",
		JWTTTL:            time.Hour,
		DBQueryTimeout:    5 * time.Second,
		DBExecuteTimeout:  10 * time.Second,
		MediaDir:          t.TempDir(),
		MaxUploadBytes:    1 << 20,
		AllowedImageTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
	}
}

// SurrealConfigForTests loads .env.test from the project root, if present, and
// returns a configuration for the SurrealDB backend. The test is skipped in
// -short mode or when SURREAL_URL is not set.
func SurrealConfigForTests(t *testing.T) config.Provider {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping SurrealDB integration test in short mode")
	}

	if root, ok := projectRoot(); ok {
		if env, err := godotenv.Read(filepath.Join(root, ".env.test")); err == nil {
			for key, value := range env {
				t.Setenv(key, value)
			}
		}
	}
	if os.Getenv("SURREAL_URL") == "" {
		t.Skip("SURREAL_URL not set; skipping SurrealDB integration test")
	}

	// Each test gets its own database so runs do not see each other's rows.
	t.Setenv("SURREAL_DB", "test_"+uuid.NewString()[:8])
	if os.Getenv("SURREAL_NS") == "" {
		t.Setenv("SURREAL_NS", "chatline_test")
	}
	t.Setenv("STORE", config.StoreSurreal)
	if os.Getenv("SESSION_SECRET") == "" {
		t.Setenv("SESSION_SECRET", "test-session-secret")
	}
	if os.Getenv("JWT_SECRET") == "" {
		t.Setenv("JWT_SECRET", "test-jwt-secret")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("invalid test configuration: %v", err)
	}
	return cfg
}

// NewTestUserID returns a fresh record key.
func NewTestUserID() string {
	return uuid.NewString()
}

func projectRoot() (string, bool) {
	path, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			return path, true
		}
		if path == filepath.Dir(path) {
			return "", false
		}
		path = filepath.Dir(path)
	}
}
