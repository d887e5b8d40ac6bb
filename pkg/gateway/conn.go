package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnClosed is returned by Send and Receive once the connection is gone.
var ErrConnClosed = errors.New("connection closed")

const (
	defaultWriteTimeout = 10 * time.Second
	defaultReadLimit    = 4096
	inboundQueueSize    = 32
	closeGracePeriod    = time.Second
)

// Conn adapts a WebSocket connection to the text message channel used by
// sessions. A background reader feeds inbound messages into a bounded queue
// and notices when the peer goes away. Writes are serialized.
type Conn struct {
	ws           *websocket.Conn
	remoteAddr   string
	writeTimeout time.Duration
	onMessage    func()

	writeMu sync.Mutex
	inbound chan string
	done    chan struct{}

	doneOnce  sync.Once
	closeOnce sync.Once

	errMu   sync.Mutex
	readErr error
}

// NewConn wraps ws and starts its reader. onMessage, if set, is called for
// every inbound message.
func NewConn(ws *websocket.Conn, remoteAddr string, writeTimeout time.Duration, readLimit int64, onMessage func()) *Conn {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	if readLimit <= 0 {
		readLimit = defaultReadLimit
	}
	ws.SetReadLimit(readLimit)

	c := &Conn{
		ws:           ws,
		remoteAddr:   remoteAddr,
		writeTimeout: writeTimeout,
		onMessage:    onMessage,
		inbound:      make(chan string, inboundQueueSize),
		done:         make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	defer c.markDone()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			c.errMu.Lock()
			c.readErr = err
			c.errMu.Unlock()
			return
		}
		if c.onMessage != nil {
			c.onMessage()
		}

		// A full queue means the session is not reading; any queued message
		// already fails the next heartbeat, so extra ones are dropped.
		select {
		case c.inbound <- string(message):
		default:
		}
	}
}

func (c *Conn) markDone() {
	c.doneOnce.Do(func() {
		close(c.done)
	})
}

func (c *Conn) closedError() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()

	if c.readErr != nil {
		return fmt.Errorf("%w: %w", ErrConnClosed, c.readErr)
	}
	return ErrConnClosed
}

// Send writes text as a single text message.
func (c *Conn) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.done:
		return c.closedError()
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(c.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Receive returns the next inbound message, waiting until one arrives, the
// connection closes, or ctx is done.
func (c *Conn) Receive(ctx context.Context) (string, error) {
	select {
	case msg := <-c.inbound:
		return msg, nil
	default:
	}

	select {
	case msg := <-c.inbound:
		return msg, nil
	case <-c.done:
		return "", c.closedError()
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close sends a normal closure frame and closes the underlying connection.
// It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		err = c.ws.Close()
		c.markDone()
	})
	return err
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

// Done is closed when the peer disconnects or Close is called.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}
