package session

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"aptiview/interview/internal/models"
)

const (
	writeWait = 10 * time.Second
	closeWait = 2 * time.Second
)

var ErrClientClosed = errors.New("client closed")

// Client serializes writes to one websocket connection.
type Client struct {
	Conn   *websocket.Conn
	mu     sync.Mutex
	hook   func(models.ServerMessage)
	closed bool
}

func NewClient(conn *websocket.Conn) *Client { return &Client{Conn: conn} }

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func(models.ServerMessage)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Send writes a message. Messages sent after Close are discarded.
func (c *Client) Send(msg models.ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	if c.hook != nil {
		c.hook(msg)
		return nil
	}
	if c.Conn == nil {
		return nil
	}
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteJSON(msg)
}

// Close sends a close frame with code and reason, then gives the peer closeWait to answer it.
func (c *Client) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.Conn == nil {
		return
	}
	_ = c.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	_ = c.Conn.SetReadDeadline(time.Now().Add(closeWait))
}

// MarkClosed stops further writes without sending a close frame (peer already gone).
func (c *Client) MarkClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
