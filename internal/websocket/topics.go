package websocket

import "github.com/nfrund/chatline/internal/pubsub"

// ConnectionEvent describes a connection entering or leaving the established state.
type ConnectionEvent struct {
	UserID     string `json:"userId"`
	ConnID     string `json:"connId"`
	Superseded string `json:"superseded,omitempty"`
	// Removed is false when a closing connection had already been superseded.
	Removed bool `json:"removed,omitempty"`
}

var (
	// TopicClientConnected is published after a connection is registered.
	TopicClientConnected = pubsub.NewEvent[ConnectionEvent](
		"system.websocket.connected",
		"A realtime connection was authenticated and registered",
	)

	// TopicClientDisconnected is published after a connection is closed.
	TopicClientDisconnected = pubsub.NewEvent[ConnectionEvent](
		"system.websocket.disconnected",
		"A realtime connection was closed and unregistered",
	)
)
