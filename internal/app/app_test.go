package app

import (
	"testing"

	"github.com/nfrund/chatline/internal/chat"
	"github.com/nfrund/chatline/internal/database/memory"
	"github.com/nfrund/chatline/internal/presence"
	"github.com/nfrund/chatline/internal/pubsub"
	"github.com/nfrund/chatline/internal/session"
	"github.com/nfrund/chatline/internal/testutils"
	"github.com/nfrund/chatline/internal/websocket"
	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MemoryBackend(t *testing.T) {
	injector := New(testutils.ConfigForTests(t))
	t.Cleanup(func() { injector.Shutdown() })

	repos, err := do.Invoke[*Repositories](injector)
	require.NoError(t, err)
	assert.IsType(t, &memory.UserStore{}, repos.Users)
	assert.IsType(t, &memory.MessageStore{}, repos.Messages)
	assert.Nil(t, repos.Conn)
	assert.True(t, repos.IsHealthy())

	router, err := do.Invoke[*chat.Router](injector)
	require.NoError(t, err)
	assert.NotNil(t, router)

	_, err = do.Invoke[*presence.Tracker](injector)
	require.NoError(t, err)
	_, err = do.Invoke[pubsub.Bus](injector)
	require.NoError(t, err)
}

func TestNew_SharesSingletons(t *testing.T) {
	injector := New(testutils.ConfigForTests(t))
	t.Cleanup(func() { injector.Shutdown() })

	dir := do.MustInvoke[*session.Directory](injector)
	mgr := do.MustInvoke[*websocket.Manager](injector)
	tracker := do.MustInvoke[*presence.Tracker](injector)

	assert.Same(t, dir, do.MustInvoke[*session.Directory](injector))
	assert.Same(t, mgr, do.MustInvoke[*websocket.Manager](injector))

	// The tracker reads the same directory the manager writes.
	dir.Register("alice", "c1")
	tracker.Broadcast()
	assert.Equal(t, []string{"alice"}, tracker.Online())
}

func TestNew_InvalidSecretFails(t *testing.T) {
	cfg := testutils.ConfigForTests(t)
	cfg.JWTSecret = ""
	injector := New(cfg)
	t.Cleanup(func() { injector.Shutdown() })

	_, err := do.Invoke[*Repositories](injector)
	assert.Error(t, err)
}
