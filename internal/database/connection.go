package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nfrund/chatline/internal/config"
	"github.com/surrealdb/surrealdb.go"
)

// Backoff retries an operation with exponentially growing, jittered delays.
type Backoff struct {
	// Attempts is the total number of calls, including the first.
	Attempts int
	Base     time.Duration
	Max      time.Duration
	Factor   float64
	// Jitter adds up to this fraction of each delay at random.
	Jitter float64
}

// DefaultBackoff allows six attempts starting at 100ms and capped at 30s.
func DefaultBackoff() Backoff {
	return Backoff{Attempts: 6, Base: 100 * time.Millisecond, Max: 30 * time.Second, Factor: 2, Jitter: 0.25}
}

// Retry calls fn until it succeeds, ctx ends or the attempts run out.
func (b Backoff) Retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < b.Attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(); err == nil {
			return nil
		}
		if attempt == b.Attempts-1 {
			break
		}

		wait := b.delay(attempt)
		slog.DebugContext(ctx, "Retrying after failure", "event", "db_retry",
			"attempt", attempt+1, "wait_ms", wait.Milliseconds(), "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", b.Attempts, err)
}

func (b Backoff) delay(attempt int) time.Duration {
	d := math.Min(float64(b.Base)*math.Pow(b.Factor, float64(attempt)), float64(b.Max))
	if b.Jitter > 0 {
		d += rand.Float64() * d * b.Jitter
	}
	return time.Duration(d)
}

// Connection owns the shared SurrealDB client. Stores run their statements
// through it so a dropped socket is re-dialled transparently.
type Connection struct {
	cfg     config.Provider
	backoff Backoff

	mu      sync.RWMutex
	conn    *surrealdb.DB
	healthy bool

	done      chan struct{}
	closeOnce sync.Once
}

// NewConnection creates an unconnected Connection. Call Connect before use.
func NewConnection(cfg config.Provider) *Connection {
	return &Connection{
		cfg:     cfg,
		backoff: DefaultBackoff(),
		done:    make(chan struct{}),
	}
}

// Connect dials the database if not already connected.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}
	return c.reconnect(ctx)
}

// Read runs fn with the configured query timeout.
func (c *Connection) Read(ctx context.Context, fn func(context.Context, *surrealdb.DB) error) error {
	ctx, cancel := getTimeoutFromContext(ctx, c.cfg.GetDBQueryTimeout(), ContextKeyQueryTimeout)
	defer cancel()
	return c.WithConnection(ctx, func(db *surrealdb.DB) error { return fn(ctx, db) })
}

// Write runs fn with the configured execute timeout.
func (c *Connection) Write(ctx context.Context, fn func(context.Context, *surrealdb.DB) error) error {
	ctx, cancel := getTimeoutFromContext(ctx, c.cfg.GetDBExecuteTimeout(), ContextKeyExecuteTimeout)
	defer cancel()
	return c.WithConnection(ctx, func(db *surrealdb.DB) error { return fn(ctx, db) })
}

// WithConnection runs fn on the live client. When fn fails with a connection
// error the client is re-dialled and fn retried with backoff.
func (c *Connection) WithConnection(ctx context.Context, fn func(*surrealdb.DB) error) error {
	conn := c.getConnection()
	if conn == nil {
		return NewDBError(ErrNotConnected, "database not connected")
	}

	err := fn(conn)
	if err == nil || !isConnectionError(ctx, err) {
		return err
	}

	slog.WarnContext(ctx, "Lost database connection, re-dialling", "event", "db_reconnect",
		"db_url", redactDBURL(c.cfg.GetDBURL()), "error", err)

	return c.backoff.Retry(ctx, func() error {
		if dialErr := c.forceReconnect(ctx); dialErr != nil {
			return fmt.Errorf("re-dial: %w", dialErr)
		}
		return fn(c.getConnection())
	})
}

// StartMonitoring checks the connection every interval and re-dials on failure.
func (c *Connection) StartMonitoring(interval time.Duration) {
	go c.monitorConnection(interval)
}

// Close stops monitoring and closes the client.
func (c *Connection) Close(ctx context.Context) error {
	c.closeOnce.Do(func() { close(c.done) })

	c.mu.Lock()
	defer c.mu.Unlock()
	c.healthy = false
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close(ctx)
	c.conn = nil
	return err
}

// DB returns the client if the last health check passed.
func (c *Connection) DB() (*surrealdb.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil || !c.healthy {
		return nil, NewDBError(ErrNotConnected, "database not connected or unhealthy")
	}
	return c.conn, nil
}

// IsHealthy returns the current connection status.
func (c *Connection) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthy
}

// Ping asks the server for its version.
func (c *Connection) Ping(ctx context.Context) error {
	return c.checkHealth(ctx)
}

func (c *Connection) getConnection() *surrealdb.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// reconnect must be called with c.mu held.
func (c *Connection) reconnect(ctx context.Context) error {
	if c.conn != nil {
		c.conn.Close(ctx)
		c.conn = nil
	}

	target := redactDBURL(c.cfg.GetDBURL())
	conn, err := NewDB(ctx, c.cfg)
	if err != nil {
		c.healthy = false
		slog.ErrorContext(ctx, "Database dial failed", "event", "db_connect_failure", "db_url", target, "error", err)
		return err
	}

	c.conn, c.healthy = conn, true
	slog.InfoContext(ctx, "Connected to database", "event", "db_connected",
		"db_url", target, "namespace", c.cfg.GetDBNs(), "database", c.cfg.GetDBDb())
	return nil
}

func (c *Connection) forceReconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnect(ctx)
}

func (c *Connection) monitorConnection(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.recheck(interval)
		}
	}
}

// recheck runs one health check and re-dials on failure, all within interval.
func (c *Connection) recheck(interval time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), interval)
	defer cancel()

	err := c.checkHealth(ctx)
	if err == nil {
		return
	}
	slog.WarnContext(ctx, "Database health check failed", "event", "db_health_failure", "error", err)
	if err := c.backoff.Retry(ctx, func() error { return c.forceReconnect(ctx) }); err != nil {
		slog.ErrorContext(ctx, "Database still unreachable", "event", "db_reconnect_failure", "error", err)
	}
}

func (c *Connection) checkHealth(ctx context.Context) error {
	conn := c.getConnection()
	if conn == nil {
		c.setHealthy(false)
		return NewDBError(ErrNotConnected, "no active database connection")
	}

	if _, err := conn.Version(ctx); err != nil {
		c.setHealthy(false)
		return fmt.Errorf("version check: %w", err)
	}
	c.setHealthy(true)
	return nil
}

func (c *Connection) setHealthy(v bool) {
	c.mu.Lock()
	c.healthy = v
	c.mu.Unlock()
}

// isConnectionError reports whether err looks like a lost connection rather
// than a rejected statement. A deadline on the caller's own ctx does not count.
func isConnectionError(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "unexpected eof") ||
		strings.Contains(msg, "use of closed network connection")
}

// redactDBURL returns dbURL with any password masked.
func redactDBURL(dbURL string) string {
	parsedURL, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}
	return parsedURL.Redacted()
}
