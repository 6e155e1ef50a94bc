package cmd

import (
	"bytes"
	"testing"

	"github.com/nfrund/chatline/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "chatline-cli v"+version+"\n", out)
}

func TestSchemaPrint(t *testing.T) {
	out, err := run(t, "schema", "print")
	require.NoError(t, err)
	assert.Contains(t, out, database.Schema)
	assert.Contains(t, out, "DEFINE TABLE")
}

func TestSchemaApplyRequiresSurreal(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("JWT_SECRET", "j")

	_, err := run(t, "schema", "apply")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "surreal backend")
}

func TestTopics(t *testing.T) {
	out, err := run(t, "topics")
	require.NoError(t, err)
	for _, name := range []string{"chat.message.saved", "presence.changed", "system.websocket.connected", "system.websocket.disconnected"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "domain.Message")
}
