package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/nfrund/chatline/internal/app"
	"github.com/nfrund/chatline/internal/domain"
	"github.com/nfrund/chatline/internal/server"
	"github.com/nfrund/chatline/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsFrame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type testServer struct {
	srv *server.Server
	ts  *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := testutils.ConfigForTests(t)
	srv, err := server.New(app.New(cfg))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.E)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
	})
	return &testServer{srv: srv, ts: ts}
}

// client is one signed-in browser: an HTTP client with its own cookie jar.
type client struct {
	t    *testing.T
	base string
	http *http.Client
	user domain.User
}

func (s *testServer) signup(t *testing.T, name, email string) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c := &client{t: t, base: s.ts.URL, http: &http.Client{Jar: jar}}

	resp := c.post("/api/auth/signup", `{"fullName":"`+name+`","email":"`+email+`","password":"secret123"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&c.user))
	return c
}

func (c *client) post(path, body string) *http.Response {
	c.t.Helper()
	resp, err := c.http.Post(c.base+path, "application/json", strings.NewReader(body))
	require.NoError(c.t, err)
	return resp
}

func (c *client) get(path string) *http.Response {
	c.t.Helper()
	resp, err := c.http.Get(c.base + path)
	require.NoError(c.t, err)
	return resp
}

func (c *client) dial() *gws.Conn {
	c.t.Helper()
	dialer := gws.Dialer{Jar: c.http.Jar, HandshakeTimeout: 2 * time.Second}
	conn, resp, err := dialer.Dial("ws"+strings.TrimPrefix(c.base, "http")+"/ws", nil)
	require.NoError(c.t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	c.t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *gws.Conn) wsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f wsFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// readOnline reads frames until a presence update listing exactly want arrives.
// The server sends the set sorted. A message push on the way fails the test.
func readOnline(t *testing.T, conn *gws.Conn, want ...string) {
	t.Helper()
	for {
		f := readFrame(t, conn)
		require.NotEqual(t, "newMessage", f.Event, "unexpected message push: %s", f.Payload)
		if f.Event != "getOnlineUsers" {
			continue
		}
		var online []string
		require.NoError(t, json.Unmarshal(f.Payload, &online))
		if slices.Equal(slices.Sorted(slices.Values(want)), online) {
			return
		}
	}
}

// expectSilence reads for wait and fails on any frame. The connection cannot
// be read again afterwards.
func expectSilence(t *testing.T, conn *gws.Conn, wait time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame: %s", data)
	var netErr net.Error
	assert.True(t, errors.As(err, &netErr) && netErr.Timeout(), "expected a read timeout, got %v", err)
}

func (c *client) history(peerID string) []domain.Message {
	c.t.Helper()
	resp := c.get("/api/messages/" + peerID)
	defer resp.Body.Close()
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	var history []domain.Message
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&history))
	return history
}

func TestRealtimeChat(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "Alice", "alice@example.com")
	bob := s.signup(t, "Bob", "bob@example.com")

	aliceConn := alice.dial()
	readOnline(t, aliceConn, alice.user.ID)

	bobConn := bob.dial()
	readOnline(t, bobConn, alice.user.ID, bob.user.ID)
	readOnline(t, aliceConn, alice.user.ID, bob.user.ID)

	resp := alice.get("/api/presence")
	var presence struct {
		Online []string `json:"online"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&presence))
	resp.Body.Close()
	assert.ElementsMatch(t, []string{alice.user.ID, bob.user.ID}, presence.Online)

	resp = bob.post("/api/messages/send/"+alice.user.ID, `{"text":"hello alice"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sent domain.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sent))
	resp.Body.Close()

	f := readFrame(t, aliceConn)
	require.Equal(t, "newMessage", f.Event)
	var pushed domain.Message
	require.NoError(t, json.Unmarshal(f.Payload, &pushed))
	assert.Equal(t, sent.ID, pushed.ID)
	assert.Equal(t, bob.user.ID, pushed.SenderID)
	require.NotNil(t, pushed.Text)
	assert.Equal(t, "hello alice", *pushed.Text)

	// The message is durable regardless of the push.
	history := alice.history(bob.user.ID)
	require.Len(t, history, 1)
	assert.Equal(t, sent.ID, history[0].ID)

	// The sender's own connection gets nothing.
	expectSilence(t, bobConn, 300*time.Millisecond)
	require.NoError(t, bobConn.Close())
	readOnline(t, aliceConn, alice.user.ID)
}

func TestOfflineReceiverCatchesUpFromHistory(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "Alice", "alice@example.com")
	bob := s.signup(t, "Bob", "bob@example.com")

	aliceConn := alice.dial()
	readOnline(t, aliceConn, alice.user.ID)
	bobConn := bob.dial()
	readOnline(t, aliceConn, alice.user.ID, bob.user.ID)

	require.NoError(t, bobConn.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, "")))
	readOnline(t, aliceConn, alice.user.ID)

	// Delivery runs before the send returns, so any push would already be
	// queued ahead of the presence update below.
	resp := alice.post("/api/messages/send/"+bob.user.ID, `{"text":"are you there?"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sent domain.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sent))
	resp.Body.Close()

	bobAgain := bob.dial()
	readOnline(t, bobAgain, alice.user.ID, bob.user.ID)
	readOnline(t, aliceConn, alice.user.ID, bob.user.ID)

	// Nothing is replayed on reconnect.
	expectSilence(t, bobAgain, 300*time.Millisecond)

	history := bob.history(alice.user.ID)
	require.Len(t, history, 1)
	assert.Equal(t, sent.ID, history[0].ID)
	assert.Equal(t, alice.user.ID, history[0].SenderID)
	require.NotNil(t, history[0].Text)
	assert.Equal(t, "are you there?", *history[0].Text)
}

func TestWebSocketRequiresToken(t *testing.T) {
	s := newTestServer(t)

	_, resp, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.ts.URL, "http")+"/ws", nil)
	require.ErrorIs(t, err, gws.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, s.srv.Tracker().Online())
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.ts.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get(s.ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "chatline_online_users")
	assert.Contains(t, string(body), "http_requests_total")
}

func TestShutdownClosesConnections(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "Alice", "alice@example.com")
	conn := alice.dial()
	readOnline(t, conn, alice.user.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.srv.Manager().Shutdown(ctx))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, gws.IsCloseError(err, gws.CloseGoingAway, gws.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
	}
}
