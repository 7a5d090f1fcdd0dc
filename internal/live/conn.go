// Package live tracks connected viewers and fans broadcast events out to
// them over their websocket channels.
package live

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds every write so a stalled peer cannot hold the writer
// goroutine past one deadline.
const writeWait = 10 * time.Second

// sendBufferSize is the outbound queue depth per connection. A viewer that
// falls further behind than this is evicted rather than buffered without
// bound.
const sendBufferSize = 64

var (
	// ErrConnClosed is returned by Send on a connection that was closed.
	ErrConnClosed = errors.New("connection closed")

	// ErrSendBufferFull is returned by Send when the viewer's outbound
	// queue is full because its socket is not draining.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Conn wraps a single viewer's websocket connection. Outbound messages are
// queued on a buffered channel and drained by a dedicated writer goroutine,
// so enqueueing never blocks on the peer. The liveness flag is flipped by
// the heartbeat monitor and by incoming pong frames.
type Conn struct {
	id string
	ws *websocket.Conn

	out    chan []byte
	closed chan struct{}

	aliveMu sync.Mutex
	alive   bool

	closeOnce sync.Once
}

// NewConn wraps ws, wires its pong handler to the liveness flag and starts
// the writer goroutine. A new connection starts out alive.
func NewConn(id string, ws *websocket.Conn) *Conn {
	c := &Conn{
		id:     id,
		ws:     ws,
		out:    make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
		alive:  true,
	}
	ws.SetPongHandler(func(string) error {
		c.markAlive()
		return nil
	})
	go c.writeLoop()
	return c
}

// ID returns the connection's opaque identifier, used for logging.
func (c *Conn) ID() string { return c.id }

// Send queues a single text message for delivery to the viewer. It never
// blocks: a closed connection or a full outbound queue is reported as an
// error so the caller can drop the connection instead of waiting on it.
func (c *Conn) Send(payload []byte) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}
	select {
	case c.out <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// writeLoop drains the outbound queue onto the websocket. A write error
// closes the connection; the read loop then unblocks and the owner
// unregisters it.
func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.closed:
			return
		case payload := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

// Ping sends a liveness probe control frame. Control frames may be written
// concurrently with the writer goroutine, so a backed-up outbound queue
// does not delay probing.
func (c *Conn) Ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Alive reports whether a probe response arrived since the last heartbeat cycle.
func (c *Conn) Alive() bool {
	c.aliveMu.Lock()
	defer c.aliveMu.Unlock()
	return c.alive
}

// markAlive transitions suspect back to alive, canceling a pending eviction.
func (c *Conn) markAlive() {
	c.aliveMu.Lock()
	c.alive = true
	c.aliveMu.Unlock()
}

// demote marks the connection suspect for the heartbeat cycle that is
// starting and reports whether it was alive when the cycle began.
func (c *Conn) demote() (wasAlive bool) {
	c.aliveMu.Lock()
	wasAlive = c.alive
	c.alive = false
	c.aliveMu.Unlock()
	return wasAlive
}

// ReadLoop consumes incoming frames until the connection errors or closes.
// Control frames (pongs in particular) are only processed while a read is
// pending, so every registered connection must have a reader running.
func (c *Conn) ReadLoop() {
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

// Close stops the writer goroutine and closes the underlying websocket.
// Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.ws.Close()
	})
	return err
}
