package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/chatline/internal/domain"
	"github.com/nfrund/chatline/internal/metrics"
	"github.com/nfrund/chatline/internal/middleware"
	"github.com/nfrund/chatline/internal/session"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// directoryPresence broadcasts the directory's online set the same way the
// presence tracker does.
type directoryPresence struct {
	dir   *session.Directory
	mgr   *Manager
	calls atomic.Int32
}

func (p *directoryPresence) Broadcast() {
	p.calls.Add(1)
	p.mgr.Broadcast(Event{Name: EventOnlineUsers, Payload: p.dir.AllUserIDs()})
}

type testEnv struct {
	dir      *session.Directory
	mgr      *Manager
	presence *directoryPresence
	metrics  *metrics.Metrics
	url      string
	httpURL  string
}

// newTestEnv serves the manager behind a stand-in auth middleware that trusts
// the ?user= query parameter.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := session.New()
	m := metrics.New()
	mgr := NewManager(dir, WithMetrics(m), WithPingInterval(0))
	presence := &directoryPresence{dir: dir, mgr: mgr}
	mgr.AttachPresence(presence)

	e := echo.New()
	fakeAuth := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id := c.QueryParam("user"); id != "" {
				c.Set(middleware.UserContextKey, &domain.User{ID: id})
			}
			return next(c)
		}
	}
	e.GET("/ws", mgr.Handler(), fakeAuth)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = mgr.Shutdown(ctx)
	})

	return &testEnv{
		dir:      dir,
		mgr:      mgr,
		presence: presence,
		metrics:  m,
		url:      "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		httpURL:  srv.URL + "/ws",
	}
}

func (env *testEnv) dial(t *testing.T, userID string) *gws.Conn {
	t.Helper()
	conn, _, err := gws.DefaultDialer.Dial(env.url+"?user="+userID, nil)
	require.NoError(t, err, "failed to dial websocket for %s", userID)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func readFrame(t *testing.T, conn *gws.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

// readOnline reads frames until a getOnlineUsers frame with the wanted set arrives.
func readOnline(t *testing.T, conn *gws.Conn, want []string) {
	t.Helper()
	for {
		f := readFrame(t, conn)
		if f.Event != EventOnlineUsers {
			continue
		}
		var online []string
		require.NoError(t, json.Unmarshal(f.Payload, &online))
		if assert.ObjectsAreEqual(want, online) {
			return
		}
	}
}

func closeConn(conn *gws.Conn) {
	_ = conn.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, ""))
	_ = conn.Close()
}

func TestManager_RejectsRequestWithoutUser(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.httpURL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, env.dir.Len())
	assert.Equal(t, int32(0), env.presence.calls.Load())
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.ConnectionAttempts.WithLabelValues("rejected")))
}

func TestManager_EstablishRegistersAndBroadcasts(t *testing.T) {
	env := newTestEnv(t)

	alice := env.dial(t, "alice")
	readOnline(t, alice, []string{"alice"})

	connID, ok := env.dir.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, StateEstablished, env.mgr.State(connID))
	assert.Equal(t, 1, env.mgr.Count())

	bob := env.dial(t, "bob")
	readOnline(t, bob, []string{"alice", "bob"})
	readOnline(t, alice, []string{"alice", "bob"})
}

func TestManager_CloseUnregistersAndBroadcasts(t *testing.T) {
	env := newTestEnv(t)

	alice := env.dial(t, "alice")
	readOnline(t, alice, []string{"alice"})
	bob := env.dial(t, "bob")
	readOnline(t, alice, []string{"alice", "bob"})

	closeConn(bob)

	readOnline(t, alice, []string{"alice"})
	assert.Eventually(t, func() bool { return env.mgr.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	_, ok := env.dir.Lookup("bob")
	assert.False(t, ok)
}

func TestManager_SendReachesOnlyTarget(t *testing.T) {
	env := newTestEnv(t)

	alice := env.dial(t, "alice")
	readOnline(t, alice, []string{"alice"})
	bob := env.dial(t, "bob")
	readOnline(t, bob, []string{"alice", "bob"})
	readOnline(t, alice, []string{"alice", "bob"})

	bobConn, ok := env.dir.Lookup("bob")
	require.True(t, ok)
	require.NoError(t, env.mgr.Send(bobConn, Event{Name: EventNewMessage, Payload: map[string]string{"text": "hi"}}))

	f := readFrame(t, bob)
	assert.Equal(t, EventNewMessage, f.Event)
	assert.JSONEq(t, `{"text":"hi"}`, string(f.Payload))

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := alice.ReadMessage()
	assert.Error(t, err, "alice must not receive bob's message")
}

func TestManager_SendUnknownConnection(t *testing.T) {
	env := newTestEnv(t)
	err := env.mgr.Send("missing", Event{Name: EventNewMessage, Payload: "x"})
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestManager_SecondConnectionSupersedesFirst(t *testing.T) {
	env := newTestEnv(t)

	first := env.dial(t, "alice")
	readOnline(t, first, []string{"alice"})
	firstID, _ := env.dir.Lookup("alice")

	second := env.dial(t, "alice")
	readOnline(t, second, []string{"alice"})
	secondID, ok := env.dir.Lookup("alice")
	require.True(t, ok)
	assert.NotEqual(t, firstID, secondID)

	// Closing the stale connection must not take alice offline.
	closeConn(first)
	assert.Eventually(t, func() bool { return env.mgr.State(firstID) == StateClosed }, 2*time.Second, 10*time.Millisecond)

	current, ok := env.dir.Lookup("alice")
	assert.True(t, ok)
	assert.Equal(t, secondID, current)
	assert.Equal(t, []string{"alice"}, env.dir.AllUserIDs())

	closeConn(second)
	assert.Eventually(t, func() bool { return env.dir.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestManager_ShutdownClosesConnections(t *testing.T) {
	env := newTestEnv(t)

	alice := env.dial(t, "alice")
	readOnline(t, alice, []string{"alice"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, env.mgr.Shutdown(ctx))

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, _, err := alice.ReadMessage()
		if err != nil {
			assert.True(t, gws.IsCloseError(err, gws.CloseGoingAway, gws.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
	}
	assert.Eventually(t, func() bool { return env.dir.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	// New connections are refused once shut down.
	conn, _, err := gws.DefaultDialer.Dial(env.url+"?user=bob", nil)
	if err == nil {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, _, err = conn.ReadMessage()
		conn.Close()
	}
	assert.Error(t, err)
	_, ok := env.dir.Lookup("bob")
	assert.False(t, ok)
}
