// Package chat routes persisted messages to the receiver's live connection.
package chat

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nfrund/chatline/internal/domain"
	"github.com/nfrund/chatline/internal/metrics"
	"github.com/nfrund/chatline/internal/pubsub"
	"github.com/nfrund/chatline/internal/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TopicMessageSaved carries messages that have been durably stored.
var TopicMessageSaved = pubsub.NewEvent[domain.Message]("chat.message.saved", "A direct message was persisted")

// DeliveryResult is the outcome of a single live push.
type DeliveryResult int

const (
	// Delivered means the frame was queued on the receiver's connection.
	Delivered DeliveryResult = iota
	// Offline means the receiver had no registered connection.
	Offline
	// Dropped means the connection vanished or its buffer was full.
	Dropped
)

func (r DeliveryResult) String() string {
	switch r {
	case Delivered:
		return metrics.DeliveryDelivered
	case Offline:
		return metrics.DeliveryOffline
	default:
		return metrics.DeliveryDropped
	}
}

// Directory resolves a user to their current connection.
type Directory interface {
	Lookup(userID string) (string, bool)
}

// Sender queues an event on one connection.
type Sender interface {
	Send(connID string, ev websocket.Event) error
}

// Router pushes newMessage events to receivers that are online. Delivery is
// at most once: an offline receiver picks the message up from history.
type Router struct {
	directory Directory
	sender    Sender
	bus       pubsub.Bus
	tracer    trace.Tracer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option is a function that configures a Router.
type Option func(*Router)

// WithTracer wraps each delivery in a span.
func WithTracer(t trace.Tracer) Option {
	return func(r *Router) { r.tracer = t }
}

// WithMetrics counts deliveries by outcome.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// NewRouter creates a Router. bus may be nil, in which case NotifyMessageSaved
// delivers inline.
func NewRouter(directory Directory, sender Sender, bus pubsub.Bus, opts ...Option) *Router {
	r := &Router{
		directory: directory,
		sender:    sender,
		bus:       bus,
		tracer:    noop.NewTracerProvider().Tracer("chatline-chat"),
		logger:    slog.Default().With("component", "chat"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Deliver pushes msg to the receiver's current connection, if any.
func (r *Router) Deliver(ctx context.Context, msg *domain.Message) DeliveryResult {
	_, span := r.tracer.Start(ctx, "chat.deliver", trace.WithAttributes(
		attribute.String("chat.message_id", msg.ID),
		attribute.String("chat.sender_id", msg.SenderID),
		attribute.String("chat.receiver_id", msg.ReceiverID),
	))
	defer span.End()

	result := r.deliver(msg)
	span.SetAttributes(attribute.String("chat.delivery", result.String()))
	if result == Dropped {
		span.SetStatus(codes.Error, "delivery dropped")
	}
	if r.metrics != nil {
		r.metrics.Deliveries.WithLabelValues(result.String()).Inc()
	}
	return result
}

func (r *Router) deliver(msg *domain.Message) DeliveryResult {
	connID, ok := r.directory.Lookup(msg.ReceiverID)
	if !ok {
		r.logger.Debug("Receiver offline, skipping live delivery", "event", "chat_receiver_offline",
			"message_id", msg.ID, "receiver_id", msg.ReceiverID)
		return Offline
	}

	err := r.sender.Send(connID, websocket.Event{Name: websocket.EventNewMessage, Payload: msg})
	switch {
	case err == nil:
		return Delivered
	case errors.Is(err, websocket.ErrConnectionNotFound):
		// The connection closed between Lookup and Send.
		r.logger.Debug("Receiver disconnected during delivery", "event", "chat_receiver_gone",
			"message_id", msg.ID, "receiver_id", msg.ReceiverID, "conn_id", connID)
	default:
		r.logger.Warn("Live delivery failed", "event", "chat_delivery_failed",
			"message_id", msg.ID, "receiver_id", msg.ReceiverID, "conn_id", connID, "error", err)
	}
	return Dropped
}

// NotifyMessageSaved announces a persisted message. Call it only after the
// message has been committed.
func (r *Router) NotifyMessageSaved(ctx context.Context, msg *domain.Message) error {
	if r.bus == nil {
		r.Deliver(ctx, msg)
		return nil
	}
	return pubsub.Publish(ctx, r.bus, TopicMessageSaved, msg.SenderID, *msg)
}

// Start subscribes to saved messages and delivers each one. It returns once the
// subscription is active.
func (r *Router) Start(ctx context.Context) error {
	if r.bus == nil {
		return nil
	}
	r.logger.Info("Starting chat router")
	return pubsub.Subscribe(ctx, r.bus, TopicMessageSaved, func(ctx context.Context, msg domain.Message) error {
		r.Deliver(ctx, &msg)
		return nil
	})
}
