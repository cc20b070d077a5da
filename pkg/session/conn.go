package session

import (
	"context"

	"github.com/coder/websocket"
)

// Conn is the transport of one client connection. Read is called from a
// single reader goroutine; Write and Close from the session loop.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// WSConn adapts a websocket connection
type WSConn struct {
	conn *websocket.Conn
}

var _ Conn = (*WSConn)(nil)

func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

func (c *WSConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	return data, err
}

func (c *WSConn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *WSConn) Close(code websocket.StatusCode, reason string) error {
	return c.conn.Close(code, reason)
}
