// Package presence derives the online-user set from the session directory
// and pushes it to every live connection.
package presence

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/nfrund/chatline/internal/metrics"
	"github.com/nfrund/chatline/internal/pubsub"
	"github.com/nfrund/chatline/internal/websocket"
)

// Source yields the current online users, sorted.
type Source interface {
	AllUserIDs() []string
}

// Broadcaster pushes an event to every established connection.
type Broadcaster interface {
	Broadcast(ev websocket.Event) int
}

// Changed is published on the bus whenever the online set differs from the
// previous broadcast.
type Changed struct {
	Online []string `json:"online"`
}

// TopicChanged carries Changed payloads.
var TopicChanged = pubsub.NewEvent[Changed]("presence.changed", "The set of online users changed")

// Tracker broadcasts the full online set on every change. Every client gets
// the whole list each time, so the cost grows with connections times users.
type Tracker struct {
	source      Source
	broadcaster Broadcaster
	publisher   pubsub.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger

	// mu serialises broadcasts so clients see snapshots in directory order.
	mu   sync.Mutex
	last []string
}

// Option is a function that configures a Tracker.
type Option func(*Tracker)

// WithPublisher publishes presence.changed on the bus.
func WithPublisher(p pubsub.Publisher) Option {
	return func(t *Tracker) { t.publisher = p }
}

// WithMetrics records the online gauge and broadcast counter.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// NewTracker creates a Tracker reading from source and pushing through broadcaster.
func NewTracker(source Source, broadcaster Broadcaster, opts ...Option) *Tracker {
	t := &Tracker{
		source:      source,
		broadcaster: broadcaster,
		logger:      slog.Default().With("component", "presence"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Broadcast sends the current online set to every established connection.
func (t *Tracker) Broadcast() {
	t.mu.Lock()
	defer t.mu.Unlock()

	online := t.source.AllUserIDs()
	sent := t.broadcaster.Broadcast(websocket.Event{Name: websocket.EventOnlineUsers, Payload: online})

	if t.metrics != nil {
		t.metrics.OnlineUsers.Set(float64(len(online)))
		t.metrics.PresenceBroadcasts.Inc()
	}
	t.logger.Debug("Broadcast online users", "event", "presence_broadcast", "online", len(online), "recipients", sent)

	if slices.Equal(online, t.last) {
		return
	}
	t.last = online
	if t.publisher != nil {
		if err := pubsub.Publish(context.Background(), t.publisher, TopicChanged, "", Changed{Online: online}); err != nil {
			t.logger.Error("Failed to publish presence change", "event", "presence_publish_failure", "error", err)
		}
	}
}

// Online returns the current online set.
func (t *Tracker) Online() []string {
	return t.source.AllUserIDs()
}

// IsOnline reports whether userID currently has a live connection.
func (t *Tracker) IsOnline(userID string) bool {
	_, found := slices.BinarySearch(t.source.AllUserIDs(), userID)
	return found
}
