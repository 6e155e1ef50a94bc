package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider exposes application settings. Components depend on this
// interface rather than on the concrete Config so tests can stub it.
type Provider interface {
	GetDBURL() string
	GetDBNs() string
	GetDBDb() string
	GetDBUser() string
	GetDBPass() string
	GetDBQueryTimeout() time.Duration
	GetDBExecuteTimeout() time.Duration
	GetStoreBackend() string
	GetServerAddr() string
	GetAppBaseURL() string
	GetSessionSecret() string
	GetJWTSecret() string
	GetJWTTTL() time.Duration
	GetMediaDir() string
	GetMaxUploadBytes() int64
	GetAllowedImageTypes() []string
}

// Store backends understood by GetStoreBackend.
const (
	StoreSurreal = "surreal"
	StoreMemory  = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	DBUrl            string
	DBNs             string
	DBDb             string
	DBUser           string
	DBPass           string
	DBQueryTimeout   time.Duration
	DBExecuteTimeout time.Duration

	StoreBackend string
	ServerAddr   string
	AppBaseURL   string

	SessionSecret string
	JWTSecret     string
	JWTTTL        time.Duration

	MediaDir          string
	MaxUploadBytes    int64
	AllowedImageTypes []string
}

var _ Provider = (*Config)(nil)

// New loads configuration from a .env file, if present, and the environment.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env files.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DBUrl:             os.Getenv("SURREAL_URL"),
		DBUser:            os.Getenv("SURREAL_USER"),
		DBPass:            os.Getenv("SURREAL_PASS"),
		DBNs:              os.Getenv("SURREAL_NS"),
		DBDb:              os.Getenv("SURREAL_DB"),
		DBQueryTimeout:    durationEnv("DB_QUERY_TIMEOUT", 5*time.Second),
		DBExecuteTimeout:  durationEnv("DB_EXECUTE_TIMEOUT", 10*time.Second),
		StoreBackend:      stringEnv("STORE", StoreSurreal),
		ServerAddr:        stringEnv("SERVER_ADDR", ":8080"),
		AppBaseURL:        stringEnv("APP_BASE_URL", "http://localhost:8080"),
		SessionSecret:     os.Getenv("SESSION_SECRET"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTTTL:            durationEnv("JWT_TTL", 7*24*time.Hour),
		MediaDir:          stringEnv("MEDIA_DIR", "data/media"),
		MaxUploadBytes:    int64Env("MAX_UPLOAD_BYTES", 5<<20),
		AllowedImageTypes: listEnv("ALLOWED_IMAGE_TYPES", []string{"image/jpeg", "image/png", "image/gif", "image/webp"}),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.StoreBackend != StoreSurreal && c.StoreBackend != StoreMemory {
		errs = append(errs, errors.New("STORE must be either \"surreal\" or \"memory\""))
	}
	if c.StoreBackend == StoreSurreal && (c.DBUrl == "" || c.DBNs == "" || c.DBDb == "") {
		errs = append(errs, errors.New("required environment variables SURREAL_URL, SURREAL_NS, or SURREAL_DB are not set"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is not set"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	return errors.Join(errs...)
}

func (c *Config) GetDBURL() string                   { return c.DBUrl }
func (c *Config) GetDBNs() string                    { return c.DBNs }
func (c *Config) GetDBDb() string                    { return c.DBDb }
func (c *Config) GetDBUser() string                  { return c.DBUser }
func (c *Config) GetDBPass() string                  { return c.DBPass }
func (c *Config) GetDBQueryTimeout() time.Duration   { return c.DBQueryTimeout }
func (c *Config) GetDBExecuteTimeout() time.Duration { return c.DBExecuteTimeout }
func (c *Config) GetStoreBackend() string            { return c.StoreBackend }
func (c *Config) GetServerAddr() string              { return c.ServerAddr }
func (c *Config) GetAppBaseURL() string              { return c.AppBaseURL }
func (c *Config) GetSessionSecret() string           { return c.SessionSecret }
func (c *Config) GetJWTSecret() string               { return c.JWTSecret }
func (c *Config) GetJWTTTL() time.Duration           { return c.JWTTTL }
func (c *Config) GetMediaDir() string                { return c.MediaDir }
func (c *Config) GetMaxUploadBytes() int64           { return c.MaxUploadBytes }
func (c *Config) GetAllowedImageTypes() []string     { return c.AllowedImageTypes }

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("Invalid duration in environment, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func int64Env(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func listEnv(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
