package wspipe

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/eapache/queue"
)

// fakeConn is a scripted Conn for pipeline tests. Inbound messages are
// queued up front and popped by ReadMessage; everything written is recorded.
type fakeConn struct {
	inbound     *queue.Queue
	sent        []*Message
	handshake   *Handshake
	sentHs      []*Handshake
	closed      bool
	closeStatus Status
	closeReason string
	idle        time.Duration
	timeout     time.Duration
}

var _ Conn = &fakeConn{}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: queue.New(),
		timeout: DefaultTimeout,
	}
}

func (c *fakeConn) script(msgs ...*Message) {
	for _, msg := range msgs {
		c.inbound.Add(msg)
	}
}

func (c *fakeConn) ReadMessage(ctx context.Context) (*Message, error) {
	if c.inbound.Length() == 0 {
		return nil, io.EOF
	}
	return c.inbound.Remove().(*Message), nil
}

func (c *fakeConn) WriteMessage(ctx context.Context, msg *Message) error {
	if c.closed {
		return net.ErrClosed
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) ReadHandshake(ctx context.Context) (*Handshake, error) {
	if c.handshake == nil {
		return nil, ErrNoHandshake
	}
	return c.handshake, nil
}

func (c *fakeConn) WriteHandshake(ctx context.Context, hs *Handshake) error {
	c.sentHs = append(c.sentHs, hs)
	return nil
}

func (c *fakeConn) Close(status Status, reason string) error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.closeStatus = status
	c.closeReason = reason
	return nil
}

func (c *fakeConn) IdleTime() time.Duration {
	return c.idle
}

func (c *fakeConn) Timeout() time.Duration {
	return c.timeout
}
