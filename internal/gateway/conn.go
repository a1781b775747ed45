package gateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conn is a live bidirectional channel to one client. The gateway and
// broadcaster depend only on this interface; tests substitute fakes and the
// websocket implementation lives below.
type Conn interface {
	// ID returns the connection's opaque identifier.
	ID() string
	// Send queues msg for delivery to the client.
	Send(msg Message) error
	// Close tears down the connection.
	Close() error
}

const (
	// pingPeriod must be shorter than the pong timeout so the peer always
	// has a ping to answer before the read deadline expires.
	pingFraction = 9.0 / 10.0

	// maxFrameSize bounds inbound frames; oversized frames close the
	// connection.
	maxFrameSize = 64 * 1024

	// sendBuffer is the per-connection outbound queue depth. A client that
	// falls this far behind is disconnected rather than blocking broadcasts.
	sendBuffer = 32
)

// wsConn adapts a gorilla websocket connection to Conn, pumping frames
// between the socket and the gateway with the usual read/write goroutine
// pair.
type wsConn struct {
	id        string
	sock      *websocket.Conn
	send      chan Message
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	logger    *zap.Logger

	writeTimeout time.Duration
	pongTimeout  time.Duration
}

func newWSConn(id string, sock *websocket.Conn, writeTimeout, pongTimeout time.Duration, logger *zap.Logger) *wsConn {
	return &wsConn{
		id:           id,
		sock:         sock,
		send:         make(chan Message, sendBuffer),
		done:         make(chan struct{}),
		logger:       logger,
		writeTimeout: writeTimeout,
		pongTimeout:  pongTimeout,
	}
}

func (c *wsConn) ID() string { return c.id }

// Send queues msg without blocking. A full queue means the client cannot
// keep up; the message is rejected and the caller decides whether to drop
// the connection.
func (c *wsConn) Send(msg Message) error {
	select {
	case <-c.done:
		return fmt.Errorf("connection %s closed", c.id)
	default:
	}
	// A Send racing Close can still land a message in the buffer after the
	// done check; it is discarded with the connection, consistent with the
	// no-queueing delivery policy.
	select {
	case c.send <- msg:
		return nil
	default:
		return fmt.Errorf("connection %s send buffer full", c.id)
	}
}

// Close is safe to call from both pumps and the server concurrently; the
// first caller tears the connection down, later callers observe its result.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.closeErr = c.sock.Close()
	})
	return c.closeErr
}

// readPump reads frames until the connection dies, handing each raw payload
// to onFrame. It owns the read side: deadlines, pong handling, size limit.
func (c *wsConn) readPump(onFrame func(connID string, raw []byte), onClose func(connID string)) {
	defer func() {
		onClose(c.id)
		c.Close()
	}()

	c.sock.SetReadLimit(maxFrameSize)
	c.sock.SetReadDeadline(time.Now().Add(c.pongTimeout))
	c.sock.SetPongHandler(func(string) error {
		c.sock.SetReadDeadline(time.Now().Add(c.pongTimeout))
		return nil
	})

	for {
		_, raw, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("connection read failed",
					zap.String("conn_id", c.id),
					zap.Error(err),
				)
			}
			return
		}
		onFrame(c.id, raw)
	}
}

// writePump drains the send queue onto the socket and keeps the connection
// alive with periodic pings.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(time.Duration(float64(c.pongTimeout) * pingFraction))
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.sock.WriteJSON(msg); err != nil {
				c.logger.Debug("connection write failed",
					zap.String("conn_id", c.id),
					zap.Error(err),
				)
				return
			}
		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
