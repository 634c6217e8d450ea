package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one open live-update channel.
type Conn interface {
	// Send delivers one text message.
	Send(ctx context.Context, data []byte) error
	// Close tears the channel down. It is safe to call more than once.
	Close() error
}

const (
	// writeWait bounds a single write when ctx carries no earlier deadline.
	writeWait = 10 * time.Second
	// pongWait is how long the peer may stay silent before the read pump gives up.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxInboundMessage caps inbound frames, which are discarded anyway.
	maxInboundMessage = 4096
)

// WSConn adapts a gorilla websocket connection to Conn. Writes are
// serialized with a mutex because the underlying connection allows only one
// concurrent writer.
type WSConn struct {
	ws        *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewWSConn wraps ws.
func NewWSConn(ws *websocket.Conn) *WSConn {
	return &WSConn{ws: ws}
}

// Send implements Conn.
func (c *WSConn) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// ping sends a keepalive control frame. WriteControl may run concurrently with Send.
func (c *WSConn) ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close implements Conn.
func (c *WSConn) Close() error {
	c.closeOnce.Do(func() {
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second),
		)
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
