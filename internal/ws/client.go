package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const sendBufferSize = 256

// wireConn is the subset of *websocket.Conn the client needs; tests swap in
// an in-memory implementation.
type wireConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one authenticated connection. A user may hold several clients at
// once (multiple devices or tabs); UserID is set during the handshake and
// never changes afterwards.
type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Phone    string
	Name     string
	JoinedAt time.Time

	hub  *Hub
	conn wireConn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, conn wireConn, userID uuid.UUID, phone string) *Client {
	return &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Phone:    phone,
		JoinedAt: time.Now(),
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
	}
}

// Send marshals an event frame and queues it for delivery. Frames to slow
// consumers are dropped rather than blocking the caller.
func (c *Client) Send(event string, data any) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		log.Printf("[ws] failed to encode %s frame: %v", event, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		log.Printf("[ws] dropping %s frame for slow client %s", event, c.ID)
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	_ = c.conn.Close()
}

// readPump reads frames until the connection breaks, then runs the
// disconnect cascade exactly once.
func (c *Client) readPump(ctx context.Context) {
	defer c.hub.Disconnect(ctx, c)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.hub.HandleFrame(ctx, c, raw)
	}
}

func (c *Client) writePump() {
	for frame := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
}
