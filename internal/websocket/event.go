package websocket

import (
	"encoding/json"
	"fmt"
)

// Outbound event names.
const (
	EventOnlineUsers = "getOnlineUsers"
	EventNewMessage  = "newMessage"
)

// Event is the JSON frame written to clients: {"event": "...", "payload": ...}.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

// Encode marshals the event into a single text frame.
func (e Event) Encode() ([]byte, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("event name is required")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", e.Name, err)
	}
	return data, nil
}
