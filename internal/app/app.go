// Package app assembles the chatline services in a samber/do injector.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/nfrund/chatline/internal/audit"
	"github.com/nfrund/chatline/internal/auth"
	"github.com/nfrund/chatline/internal/chat"
	"github.com/nfrund/chatline/internal/config"
	"github.com/nfrund/chatline/internal/database"
	"github.com/nfrund/chatline/internal/database/memory"
	"github.com/nfrund/chatline/internal/domain"
	"github.com/nfrund/chatline/internal/metrics"
	"github.com/nfrund/chatline/internal/presence"
	"github.com/nfrund/chatline/internal/pubsub"
	"github.com/nfrund/chatline/internal/session"
	"github.com/nfrund/chatline/internal/storage"
	"github.com/nfrund/chatline/internal/websocket"
	"github.com/samber/do/v2"
	"go.opentelemetry.io/otel/trace"
)

const (
	connectTimeout        = 30 * time.Second
	healthMonitorInterval = 30 * time.Second
)

// Repositories holds the stores of the configured backend.
type Repositories struct {
	Users    domain.UserRepository
	Messages domain.MessageRepository
	// Conn is nil for the memory backend.
	Conn *database.Connection
}

// IsHealthy reports the database health. The memory backend is always healthy.
func (r *Repositories) IsHealthy() bool {
	return r.Conn == nil || r.Conn.IsHealthy()
}

// Shutdown closes the database connection, if any.
func (r *Repositories) Shutdown(ctx context.Context) error {
	if r.Conn == nil {
		return nil
	}
	return r.Conn.Close(ctx)
}

// Tracing holds the tracer shared by the bus and the chat router.
type Tracing struct {
	Tracer  trace.Tracer
	cleanup func()
}

// Shutdown flushes and stops the tracer provider.
func (t *Tracing) Shutdown() {
	t.cleanup()
}

// New registers every service provider for cfg. Services are built lazily on
// first invocation.
func New(cfg *config.Config) *do.RootScope {
	i := do.New()
	do.ProvideValue(i, cfg)
	do.Provide(i, provideMetrics)
	do.Provide(i, provideTracing)
	do.Provide(i, provideBus)
	do.Provide(i, provideTokens)
	do.Provide(i, provideRepositories)
	do.Provide(i, provideMedia)
	do.Provide(i, provideDirectory)
	do.Provide(i, provideManager)
	do.Provide(i, provideTracker)
	do.Provide(i, provideRouter)
	do.Provide(i, provideAudit)
	return i
}

func provideMetrics(do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}

func provideTracing(do.Injector) (*Tracing, error) {
	tracer, cleanup, err := pubsub.SetupOTel(context.Background(), pubsub.LoadTracingConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	return &Tracing{Tracer: tracer, cleanup: cleanup}, nil
}

func provideBus(i do.Injector) (pubsub.Bus, error) {
	tracing := do.MustInvoke[*Tracing](i)
	return pubsub.NewWatermillBridge(pubsub.WithTracer(tracing.Tracer)), nil
}

func provideTokens(i do.Injector) (*auth.TokenIssuer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return auth.NewTokenIssuer(cfg.GetJWTSecret(), cfg.GetJWTTTL())
}

func provideRepositories(i do.Injector) (*Repositories, error) {
	cfg := do.MustInvoke[*config.Config](i)
	tokens := do.MustInvoke[*auth.TokenIssuer](i)

	if cfg.GetStoreBackend() == config.StoreMemory {
		slog.Warn("Using in-memory store; data is lost on exit", "event", "store_memory")
		return &Repositories{
			Users:    memory.NewUserStore(tokens),
			Messages: memory.NewMessageStore(),
		}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	conn := database.NewConnection(cfg)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := database.ApplySchema(ctx, conn); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	conn.StartMonitoring(healthMonitorInterval)

	return &Repositories{
		Users:    database.NewSurrealUserStore(conn, tokens),
		Messages: database.NewSurrealMessageStore(conn),
		Conn:     conn,
	}, nil
}

func provideMedia(i do.Injector) (*storage.MediaStore, error) {
	cfg := do.MustInvoke[*config.Config](i)
	store, err := storage.NewDiskStore(cfg.GetMediaDir())
	if err != nil {
		return nil, fmt.Errorf("open media directory: %w", err)
	}
	return storage.NewMediaStore(store, cfg.GetMaxUploadBytes(), cfg.GetAllowedImageTypes()), nil
}

func provideDirectory(do.Injector) (*session.Directory, error) {
	return session.New(), nil
}

func provideManager(i do.Injector) (*websocket.Manager, error) {
	cfg := do.MustInvoke[*config.Config](i)
	opts := []websocket.Option{
		websocket.WithPublisher(do.MustInvoke[pubsub.Bus](i)),
		websocket.WithMetrics(do.MustInvoke[*metrics.Metrics](i)),
	}
	if u, err := url.Parse(cfg.GetAppBaseURL()); err == nil && u.Host != "" {
		opts = append(opts, websocket.WithOriginPatterns(u.Host))
	}
	return websocket.NewManager(do.MustInvoke[*session.Directory](i), opts...), nil
}

func provideTracker(i do.Injector) (*presence.Tracker, error) {
	mgr := do.MustInvoke[*websocket.Manager](i)
	tracker := presence.NewTracker(
		do.MustInvoke[*session.Directory](i),
		mgr,
		presence.WithPublisher(do.MustInvoke[pubsub.Bus](i)),
		presence.WithMetrics(do.MustInvoke[*metrics.Metrics](i)),
	)
	mgr.AttachPresence(tracker)
	return tracker, nil
}

func provideRouter(i do.Injector) (*chat.Router, error) {
	return chat.NewRouter(
		do.MustInvoke[*session.Directory](i),
		do.MustInvoke[*websocket.Manager](i),
		do.MustInvoke[pubsub.Bus](i),
		chat.WithTracer(do.MustInvoke[*Tracing](i).Tracer),
		chat.WithMetrics(do.MustInvoke[*metrics.Metrics](i)),
	), nil
}

func provideAudit(i do.Injector) (*audit.Logger, error) {
	return audit.New(do.MustInvoke[pubsub.Bus](i), slog.Default()), nil
}
