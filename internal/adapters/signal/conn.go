package signal

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/avdeev/tandem/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

// wsSignalConn wraps one websocket with a buffered outbound channel.
// TrySend never blocks: a full buffer means the client is too slow and
// the frame is dropped with ErrBackpressure.
type wsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWSSignalConn(conn *websocket.Conn, buffer int) *wsSignalConn {
	if buffer <= 0 {
		buffer = 32
	}
	return &wsSignalConn{
		conn: conn,
		send: make(chan core.Frame, buffer),
	}
}

func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
