package presence

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nfrund/chatline/internal/metrics"
	"github.com/nfrund/chatline/internal/pubsub"
	"github.com/nfrund/chatline/internal/session"
	"github.com/nfrund/chatline/internal/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingBroadcaster captures broadcast events.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (r *recordingBroadcaster) Broadcast(ev websocket.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return 1
}

func (r *recordingBroadcaster) last(t *testing.T) websocket.Event {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.events)
	return r.events[len(r.events)-1]
}

// mockPublisher records published messages.
type mockPublisher struct {
	mu       sync.Mutex
	messages []pubsub.Message
}

func (m *mockPublisher) Publish(ctx context.Context, msg pubsub.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func TestTracker_BroadcastMatchesDirectory(t *testing.T) {
	dir := session.New()
	rec := &recordingBroadcaster{}
	m := metrics.New()
	tracker := NewTracker(dir, rec, WithMetrics(m))

	dir.Register("bob", "c-b")
	dir.Register("alice", "c-a")
	tracker.Broadcast()

	ev := rec.last(t)
	assert.Equal(t, websocket.EventOnlineUsers, ev.Name)
	assert.Equal(t, dir.AllUserIDs(), ev.Payload)
	assert.Equal(t, []string{"alice", "bob"}, ev.Payload)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.OnlineUsers))

	dir.Unregister("c-b")
	tracker.Broadcast()

	assert.Equal(t, []string{"alice"}, rec.last(t).Payload)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OnlineUsers))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.PresenceBroadcasts))
}

func TestTracker_EmptySetIsEncodedAsArray(t *testing.T) {
	rec := &recordingBroadcaster{}
	tracker := NewTracker(session.New(), rec)
	tracker.Broadcast()

	frame, err := rec.last(t).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"getOnlineUsers","payload":[]}`, string(frame))
}

func TestTracker_PublishesOnlyOnChange(t *testing.T) {
	dir := session.New()
	pub := &mockPublisher{}
	tracker := NewTracker(dir, &recordingBroadcaster{}, WithPublisher(pub))

	dir.Register("alice", "c-a")
	tracker.Broadcast()
	tracker.Broadcast()
	dir.Register("bob", "c-b")
	tracker.Broadcast()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.messages, 2)
	assert.Equal(t, TopicChanged.Name(), pub.messages[1].Topic)

	var changed Changed
	require.NoError(t, json.Unmarshal(pub.messages[1].Payload, &changed))
	assert.Equal(t, []string{"alice", "bob"}, changed.Online)
}

func TestTracker_OnlineAndIsOnline(t *testing.T) {
	dir := session.New()
	tracker := NewTracker(dir, &recordingBroadcaster{})

	dir.Register("carol", "c-c")
	assert.Equal(t, []string{"carol"}, tracker.Online())
	assert.True(t, tracker.IsOnline("carol"))
	assert.False(t, tracker.IsOnline("dave"))
}

func TestTracker_PublishesOverWatermill(t *testing.T) {
	bus := pubsub.NewWatermillBridge()
	t.Cleanup(func() { _ = bus.Close() })

	got := make(chan Changed, 1)
	require.NoError(t, pubsub.Subscribe(context.Background(), bus, TopicChanged, func(ctx context.Context, c Changed) error {
		got <- c
		return nil
	}))

	dir := session.New()
	tracker := NewTracker(dir, &recordingBroadcaster{}, WithPublisher(bus))
	dir.Register("alice", "c-a")
	tracker.Broadcast()

	select {
	case c := <-got:
		assert.Equal(t, []string{"alice"}, c.Online)
	case <-time.After(2 * time.Second):
		t.Fatal("presence change was not published")
	}
}
