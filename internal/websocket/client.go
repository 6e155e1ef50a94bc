package websocket

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// Client is one live websocket connection of an authenticated user.
type Client struct {
	// ID is the connection identifier recorded in the session directory.
	ID     string
	UserID string

	conn      *websocket.Conn
	send      chan []byte
	state     atomic.Int32
	closeOnce sync.Once
	manager   *Manager
}

// State returns the client's lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

// readPump blocks until the connection ends. Clients have nothing to say on
// this channel, so inbound frames are discarded; reading is still required to
// process control frames and notice disconnects.
func (c *Client) readPump(ctx context.Context) {
	log := c.manager.logger
	for {
		_, _, err := c.conn.Read(ctx)
		if err == nil {
			continue
		}
		switch status := websocket.CloseStatus(err); {
		case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
			log.Info("WebSocket closed normally by client", "event", "ws_client_close", "user_id", c.UserID, "conn_id", c.ID)
		case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
			log.Debug("WebSocket read loop ended", "user_id", c.UserID, "conn_id", c.ID, "error", err)
		default:
			log.Warn("WebSocket read error", "event", "ws_read_error", "user_id", c.UserID, "conn_id", c.ID, "error", err)
		}
		return
	}
}

// writePump is the only writer on the connection, so frames reach the client
// in the order they were queued.
func (c *Client) writePump() {
	log := c.manager.logger

	var ping <-chan time.Time
	if c.manager.pingInterval > 0 {
		ticker := time.NewTicker(c.manager.pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), c.manager.writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				log.Warn("WebSocket write error", "event", "ws_write_error", "user_id", c.UserID, "conn_id", c.ID, "error", err)
				c.conn.CloseNow()
				c.drain()
				return
			}
		case <-ping:
			ctx, cancel := context.WithTimeout(context.Background(), c.manager.writeTimeout)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				log.Debug("WebSocket ping failed", "user_id", c.UserID, "conn_id", c.ID, "error", err)
				c.conn.CloseNow()
				c.drain()
				return
			}
		}
	}
}

// drain discards queued frames until the manager closes the channel, so
// senders never observe a stuck buffer on a dead connection.
func (c *Client) drain() {
	for range c.send {
	}
}
