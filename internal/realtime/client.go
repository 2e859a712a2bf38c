package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT CONNECTION
// ══════════════════════════════════════════════════════════════════════════════

const (
	// writeWait is the deadline for a single frame write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered dead.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxFrameSize bounds inbound frames.
	maxFrameSize = 8 * 1024

	// sendQueueSize is the per-connection outbound buffer. A client that
	// cannot drain it is disconnected rather than allowed to block others.
	sendQueueSize = 256
)

// Client is one live WebSocket connection bound to an identity.
type Client struct {
	identity string
	conn     *websocket.Conn
	router   *Router
	logger   *slog.Logger

	// send is never closed; done signals teardown instead, so a broadcaster
	// holding a stale snapshot of this client can always call Send safely.
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(identity string, conn *websocket.Conn, router *Router, logger *slog.Logger) *Client {
	return &Client{
		identity: identity,
		conn:     conn,
		router:   router,
		logger:   logger.With("identity", identity),
		send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
	}
}

// Identity returns the identity bound to this connection.
func (c *Client) Identity() string {
	return c.identity
}

// Send queues a frame for delivery. Frames for a closed connection are
// dropped. A full queue closes the connection; the client reconnects and
// resyncs rather than receive a gapped stream.
func (c *Client) Send(frame []byte) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- frame:
	case <-c.done:
	default:
		c.logger.Warn("send queue full, dropping connection")
		c.Close()
	}
}

// readPump reads and dispatches inbound frames sequentially, which preserves
// the sender's event order end to end.
func (c *Client) readPump(ctx context.Context) {
	defer c.Close()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		c.router.Dispatch(ctx, c, raw)
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close tears the connection down exactly once: room cleanup, presence
// handoff, then the socket itself. Only done is closed; the send channel
// stays open so late broadcasters never hit a closed channel.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.router.disconnected(c)
		_ = c.conn.Close()
	})
}
