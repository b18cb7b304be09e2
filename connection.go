package wspipe

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// DefaultTimeout is the idle timeout assumed when a connection is built
// without an explicit one. PingInterval falls back to it through
// Conn.Timeout.
const DefaultTimeout = 30 * time.Second

// Conn is the transport boundary the pipeline drives. Read and write calls
// block; the pipeline treats them as opaque synchronous operations and
// propagates their errors unchanged.
type Conn interface {
	ReadMessage(ctx context.Context) (*Message, error)
	WriteMessage(ctx context.Context, msg *Message) error
	ReadHandshake(ctx context.Context) (*Handshake, error)
	WriteHandshake(ctx context.Context, hs *Handshake) error
	Close(status Status, reason string) error
	IdleTime() time.Duration
	Timeout() time.Duration
}

// WebSocketConn adapts a coder/websocket connection to the Conn boundary.
// The upgrade itself is performed by websocket.Accept or websocket.Dial
// before the conn exists, so the handshake methods serve the captured
// request/response rather than touching the wire.
type WebSocketConn struct {
	conn     *websocket.Conn
	request  *Handshake
	response *Handshake
	timeout  time.Duration

	mu           sync.Mutex
	lastActivity time.Time
	closeDone    bool
}

var _ Conn = &WebSocketConn{}

type WebSocketConnOption func(*WebSocketConn)

// WithHandshake attaches the upgrade request and response observed while
// establishing the connection, making them available to the handshake
// pipeline.
func WithHandshake(request, response *Handshake) WebSocketConnOption {
	return func(c *WebSocketConn) {
		c.request = request
		c.response = response
	}
}

func WithTimeout(timeout time.Duration) WebSocketConnOption {
	return func(c *WebSocketConn) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func NewWebSocketConn(conn *websocket.Conn, opts ...WebSocketConnOption) *WebSocketConn {
	c := &WebSocketConn{
		conn:         conn,
		timeout:      DefaultTimeout,
		lastActivity: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *WebSocketConn) ReadMessage(ctx context.Context) (*Message, error) {
	messageType, data, err := c.conn.Read(ctx)
	if err != nil {
		// A peer close surfaces from coder/websocket as an error; hand it
		// to the pipeline as a close message so CloseHandler can run its
		// state machine. By this point coder/websocket has already echoed
		// the close frame on the wire, so further close calls on this
		// conn are satisfied without touching the socket again.
		var closeErr websocket.CloseError
		if errors.As(err, &closeErr) {
			c.markCloseDone()
			c.touch()
			return NewCloseMessage(Status(closeErr.Code), closeErr.Reason), nil
		}
		return nil, err
	}
	c.touch()
	kind := KindText
	if messageType == websocket.MessageBinary {
		kind = KindBinary
	}
	return NewMessage(kind, data), nil
}

func (c *WebSocketConn) WriteMessage(ctx context.Context, msg *Message) error {
	defer c.touch()
	switch msg.Kind {
	case KindClose:
		return c.Close(msg.CloseStatus(), msg.Reason)
	case KindPing:
		pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.conn.Ping(pingCtx)
	case KindPong:
		// coder/websocket answers pings internally; there is nothing to
		// write here.
		return nil
	case KindBinary:
		return c.conn.Write(ctx, websocket.MessageBinary, msg.Data)
	default:
		return c.conn.Write(ctx, websocket.MessageText, msg.Data)
	}
}

func (c *WebSocketConn) ReadHandshake(ctx context.Context) (*Handshake, error) {
	if c.request == nil {
		return nil, ErrNoHandshake
	}
	return c.request, nil
}

func (c *WebSocketConn) WriteHandshake(ctx context.Context, hs *Handshake) error {
	// Already written by Accept/Dial; keep the final form for inspection.
	c.response = hs
	return nil
}

// Close runs the transport close handshake. Once the handshake has completed
// in either direction, further closes are no-ops: CloseHandler both confirms
// a peer close and tears the transport down, and the second of those must
// succeed against a socket the first already closed.
func (c *WebSocketConn) Close(status Status, reason string) error {
	done := c.closeHandshakeDone()
	err := c.conn.Close(status, reason)
	c.markCloseDone()
	if err == nil {
		return nil
	}
	if done || errors.Is(err, net.ErrClosed) || websocket.CloseStatus(err) != -1 {
		return nil
	}
	return err
}

func (c *WebSocketConn) IdleTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastActivity)
}

func (c *WebSocketConn) Timeout() time.Duration {
	return c.timeout
}

func (c *WebSocketConn) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

func (c *WebSocketConn) markCloseDone() {
	c.mu.Lock()
	c.closeDone = true
	c.mu.Unlock()
}

func (c *WebSocketConn) closeHandshakeDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeDone
}
