// Package audit records realtime lifecycle events from the bus in the
// structured log.
package audit

import (
	"context"
	"log/slog"

	"github.com/nfrund/chatline/internal/presence"
	"github.com/nfrund/chatline/internal/pubsub"
	"github.com/nfrund/chatline/internal/websocket"
)

// Logger subscribes to connection and presence events and logs each one.
type Logger struct {
	sub    pubsub.Subscriber
	logger *slog.Logger
}

// New creates a Logger. A nil logger uses slog.Default.
func New(sub pubsub.Subscriber, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{sub: sub, logger: logger.With("component", "audit")}
}

// Start subscribes to every audited topic. Events are processed until ctx ends.
func (l *Logger) Start(ctx context.Context) error {
	if err := pubsub.Subscribe(ctx, l.sub, websocket.TopicClientConnected, l.connected); err != nil {
		return err
	}
	if err := pubsub.Subscribe(ctx, l.sub, websocket.TopicClientDisconnected, l.disconnected); err != nil {
		return err
	}
	return pubsub.Subscribe(ctx, l.sub, presence.TopicChanged, l.presenceChanged)
}

func (l *Logger) connected(ctx context.Context, ev websocket.ConnectionEvent) error {
	attrs := []any{"event", "audit_connected", "user_id", ev.UserID, "conn_id", ev.ConnID}
	if ev.Superseded != "" {
		attrs = append(attrs, "superseded", ev.Superseded)
	}
	l.logger.InfoContext(ctx, "User connected", attrs...)
	return nil
}

func (l *Logger) disconnected(ctx context.Context, ev websocket.ConnectionEvent) error {
	l.logger.InfoContext(ctx, "User disconnected", "event", "audit_disconnected",
		"user_id", ev.UserID, "conn_id", ev.ConnID, "was_current", ev.Removed)
	return nil
}

func (l *Logger) presenceChanged(ctx context.Context, ev presence.Changed) error {
	l.logger.InfoContext(ctx, "Online set changed", "event", "audit_presence", "online_count", len(ev.Online))
	return nil
}
