package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Mariodrm17/Practica1/internal/config"
	"github.com/Mariodrm17/Practica1/internal/domain"
	"github.com/Mariodrm17/Practica1/pkg/log"
)

var (
	errClientClosed = errors.New("client closed")
	errSendBuffer   = errors.New("send buffer full")
)

// Client is one realtime connection. Frames are queued on a bounded buffer drained by
// WritePump; a client whose buffer is full is closed instead of skipped.
type Client struct {
	ID      string
	Session *domain.Session

	conn   *websocket.Conn
	send   chan []byte
	config config.WebSocketConfig

	mu     sync.Mutex
	closed bool
}

// NewClient wraps conn. conn may be nil for clients that are only driven through
// Enqueue and Outbound.
func NewClient(id string, identity domain.Identity, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	buf := cfg.SendBuffer
	if buf <= 0 {
		buf = 256
	}
	return &Client{
		ID:      id,
		Session: domain.NewSession(id, identity),
		conn:    conn,
		send:    make(chan []byte, buf),
		config:  cfg,
	}
}

// Enqueue queues a frame without blocking.
func (c *Client) Enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errSendBuffer
	}
}

// SendMessage encodes message as JSON and queues it.
func (c *Client) SendMessage(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.Enqueue(data)
}

// Close stops delivery. WritePump sends a close frame once the buffer is drained.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Outbound exposes the frame queue. It is closed by Close.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

// ReadPump reads frames until the connection fails, then calls onClose.
func (c *Client) ReadPump(handler func(*Client, []byte), onClose func(*Client)) {
	defer func() {
		onClose(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l := log.L()
				l.Warn().Err(err).Str(log.FieldConnID, c.ID).Msg("websocket read error")
			}
			break
		}

		c.Session.UpdateActivity()
		handler(c, message)
	}
}

// WritePump drains the send buffer and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
