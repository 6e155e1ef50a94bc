package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/chatline/internal/domain"
	"github.com/nfrund/chatline/internal/metrics"
	"github.com/nfrund/chatline/internal/middleware"
	"github.com/nfrund/chatline/internal/pubsub"
)

// Defaults applied by NewManager. Options override them.
const (
	DefaultSendBuffer   = 256
	DefaultWriteTimeout = 10 * time.Second
	DefaultPingInterval = 30 * time.Second
	DefaultReadLimit    = 4096
)

var (
	// ErrConnectionNotFound is returned by Send for an ID that is not established.
	ErrConnectionNotFound = errors.New("connection not found")
	// ErrSendBufferFull is returned by Send when the frame was dropped.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Registry is the directory the manager records established connections in.
type Registry interface {
	Register(userID, connID string) (superseded string)
	Unregister(connID string) (userID string, removed bool)
}

// PresenceNotifier is told whenever the set of registered connections changes.
type PresenceNotifier interface {
	Broadcast()
}

// Manager owns every live websocket connection. It moves each one through
// Connecting, Established and Closed, keeping the Registry in step and
// triggering a presence broadcast on every transition.
type Manager struct {
	registry  Registry
	presence  PresenceNotifier
	publisher pubsub.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sendBuffer     int
	writeTimeout   time.Duration
	pingInterval   time.Duration
	readLimit      int64
	originPatterns []string
}

// Option is a function that configures a Manager.
type Option func(*Manager)

// WithPublisher publishes connection lifecycle events on the bus.
func WithPublisher(p pubsub.Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// WithMetrics records connection gauges and counters.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithSendBuffer sets the per-connection outbound queue length.
func WithSendBuffer(n int) Option {
	return func(m *Manager) { m.sendBuffer = n }
}

// WithWriteTimeout bounds each frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(m *Manager) { m.writeTimeout = d }
}

// WithPingInterval sets the keepalive interval. Zero disables pings.
func WithPingInterval(d time.Duration) Option {
	return func(m *Manager) { m.pingInterval = d }
}

// WithOriginPatterns restricts which origins may open a connection.
// With no patterns only same-origin requests are accepted.
func WithOriginPatterns(patterns ...string) Option {
	return func(m *Manager) { m.originPatterns = patterns }
}

// NewManager creates a Manager that records connections in registry.
func NewManager(registry Registry, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		registry:     registry,
		clients:      make(map[string]*Client),
		logger:       slog.Default().With("component", "websocket"),
		ctx:          ctx,
		cancel:       cancel,
		sendBuffer:   DefaultSendBuffer,
		writeTimeout: DefaultWriteTimeout,
		pingInterval: DefaultPingInterval,
		readLimit:    DefaultReadLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = metrics.New()
	}
	return m
}

// AttachPresence sets the notifier called after every register and unregister.
// The presence tracker itself broadcasts through the manager, so it is attached
// after both exist.
func (m *Manager) AttachPresence(p PresenceNotifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presence = p
}

// Handler upgrades an authenticated request to a websocket connection and
// serves it until the connection closes. The auth middleware must run first;
// a request without a verified user is rejected and never registered.
func (m *Manager) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := c.Get(middleware.UserContextKey).(*domain.User)
		if !ok || user == nil || user.ID == "" {
			m.metrics.ConnectionAttempts.WithLabelValues("rejected").Inc()
			m.logger.Warn("Rejected websocket connection without verified user", "event", "ws_unauthenticated", "remote_ip", c.RealIP())
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Unauthorized - No Token Provided"})
		}

		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			OriginPatterns: m.originPatterns,
		})
		if err != nil {
			// Accept has already written the HTTP error response.
			m.metrics.ConnectionAttempts.WithLabelValues("upgrade_failed").Inc()
			m.logger.Error("Failed to upgrade connection to WebSocket", "event", "ws_upgrade_failure", "user_id", user.ID, "error", err)
			return nil
		}
		conn.SetReadLimit(m.readLimit)

		client := &Client{
			ID:      uuid.NewString(),
			UserID:  user.ID,
			conn:    conn,
			send:    make(chan []byte, m.sendBuffer),
			manager: m,
		}

		if !m.establish(client) {
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return nil
		}
		m.metrics.ConnectionAttempts.WithLabelValues("accepted").Inc()

		go func() {
			defer m.wg.Done()
			client.writePump()
		}()

		client.readPump(m.ctx)
		m.closeClient(client)
		return nil
	}
}

// establish moves a client from Connecting to Established.
func (m *Manager) establish(c *Client) bool {
	m.mu.Lock()
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		return false
	}
	m.clients[c.ID] = c
	c.setState(StateEstablished)
	// Counted under the lock so Shutdown's Wait cannot miss this writer.
	m.wg.Add(1)
	m.mu.Unlock()

	superseded := m.registry.Register(c.UserID, c.ID)
	m.metrics.ActiveConnections.Inc()

	m.logger.Info("WebSocket connection established", "event", "ws_established",
		"user_id", c.UserID, "conn_id", c.ID, "superseded", superseded)

	m.publish(TopicClientConnected, ConnectionEvent{UserID: c.UserID, ConnID: c.ID, Superseded: superseded})
	m.notifyPresence()
	return true
}

// closeClient moves a client to Closed. It is safe to call more than once.
func (m *Manager) closeClient(c *Client) {
	c.closeOnce.Do(func() {
		m.mu.Lock()
		delete(m.clients, c.ID)
		c.setState(StateClosed)
		// No sender can hold c after it left the map under the write lock.
		close(c.send)
		m.mu.Unlock()

		userID, removed := m.registry.Unregister(c.ID)
		m.metrics.ActiveConnections.Dec()

		m.logger.Info("WebSocket connection closed", "event", "ws_closed",
			"user_id", c.UserID, "conn_id", c.ID, "was_current", removed)

		if userID == "" {
			userID = c.UserID
		}
		m.publish(TopicClientDisconnected, ConnectionEvent{UserID: userID, ConnID: c.ID, Removed: removed})
		m.notifyPresence()
	})
}

func (m *Manager) notifyPresence() {
	m.mu.RLock()
	p := m.presence
	m.mu.RUnlock()
	if p != nil {
		p.Broadcast()
	}
}

func (m *Manager) publish(event pubsub.Event[ConnectionEvent], payload ConnectionEvent) {
	if m.publisher == nil {
		return
	}
	if err := pubsub.Publish(m.ctx, m.publisher, event, payload.UserID, payload); err != nil {
		m.logger.Error("Failed to publish connection event", "event", "ws_publish_failure", "topic", event.Name(), "error", err)
	}
}

// Send queues ev on a single connection without blocking.
func (m *Manager) Send(connID string, ev Event) error {
	frame, err := ev.Encode()
	if err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.clients[connID]
	if !ok {
		return ErrConnectionNotFound
	}
	if !m.enqueue(c, frame) {
		return ErrSendBufferFull
	}
	return nil
}

// Broadcast queues ev on every established connection and returns how many
// connections accepted it.
func (m *Manager) Broadcast(ev Event) int {
	frame, err := ev.Encode()
	if err != nil {
		m.logger.Error("Failed to encode broadcast event", "event", "ws_encode_failure", "error", err)
		return 0
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	sent := 0
	for _, c := range m.clients {
		if m.enqueue(c, frame) {
			sent++
		}
	}
	return sent
}

// enqueue must be called with m.mu held.
func (m *Manager) enqueue(c *Client, frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		m.metrics.DroppedFrames.Inc()
		m.logger.Warn("Client send channel full, dropping message", "event", "ws_frame_dropped", "user_id", c.UserID, "conn_id", c.ID)
		return false
	}
}

// State reports the lifecycle state of connID. Unknown IDs report Closed.
func (m *Manager) State(connID string) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.clients[connID]; ok {
		return c.State()
	}
	return StateClosed
}

// Count returns the number of established connections.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Shutdown closes every connection with StatusGoingAway and waits for their
// writers to finish or ctx to expire. No new connections are accepted after it.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.cancel()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	for _, c := range clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
