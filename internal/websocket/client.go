// internal/websocket/client.go

package websocket

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Client represents one connected websocket peer together with its
// current identity: a server-generated player id, the display name the
// client supplied, and the room it belongs to (empty in the lobby).
type Client struct {
	// The websocket connection
	conn *websocket.Conn

	// The hub instance
	hub *Hub

	// Buffered channel of outbound events
	send chan *Event

	// Server-generated, unique per connection
	ID string

	// Client-supplied display name, set on create/join
	Username string

	// Room this client is in, empty while in the lobby
	RoomID string

	// Handles decoded inbound messages
	messageHandler func(*Client, []byte)

	// Invoked once when the connection drops, before unregistering
	closeHandler func(*Client)
}

// NewClient creates a new client for an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, clientID string) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan *Event, 256),
		ID:   clientID,
	}
}

// SetMessageHandler sets the function to handle incoming messages.
func (c *Client) SetMessageHandler(handler func(*Client, []byte)) {
	c.messageHandler = handler
}

// SetCloseHandler sets the function invoked when the connection closes.
// A close is treated exactly like an explicit leave-room request.
func (c *Client) SetCloseHandler(handler func(*Client)) {
	c.closeHandler = handler
}

// ReadPump pumps messages from the connection to the message handler.
// All inbound events for this connection are handled on this goroutine,
// one at a time.
func (c *Client) ReadPump() {
	defer func() {
		if c.closeHandler != nil {
			c.closeHandler(c)
		}
		c.hub.Unregister <- c
		c.conn.Close()
		slog.Info("client disconnected", "client_id", c.ID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("read error", "client_id", c.ID, "error", err)
			}
			break
		}

		if c.messageHandler != nil {
			c.messageHandler(c, message)
		}
	}
}

// WritePump pumps events from the hub to the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(event); err != nil {
				slog.Warn("write error", "client_id", c.ID, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
