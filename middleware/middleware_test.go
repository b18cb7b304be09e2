package middleware_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"
	wspipe "github.com/snapflowio/wspipe"
	"github.com/snapflowio/wspipe/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedConn struct {
	inbound   *queue.Queue
	sent      []*wspipe.Message
	handshake *wspipe.Handshake
}

var _ wspipe.Conn = &scriptedConn{}

func newScriptedConn(msgs ...*wspipe.Message) *scriptedConn {
	conn := &scriptedConn{inbound: queue.New()}
	for _, msg := range msgs {
		conn.inbound.Add(msg)
	}
	return conn
}

func (c *scriptedConn) ReadMessage(ctx context.Context) (*wspipe.Message, error) {
	if c.inbound.Length() == 0 {
		return nil, io.EOF
	}
	return c.inbound.Remove().(*wspipe.Message), nil
}

func (c *scriptedConn) WriteMessage(ctx context.Context, msg *wspipe.Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

func (c *scriptedConn) ReadHandshake(ctx context.Context) (*wspipe.Handshake, error) {
	if c.handshake == nil {
		return nil, wspipe.ErrNoHandshake
	}
	return c.handshake, nil
}

func (c *scriptedConn) WriteHandshake(ctx context.Context, hs *wspipe.Handshake) error {
	return nil
}

func (c *scriptedConn) Close(status wspipe.Status, reason string) error {
	return nil
}

func (c *scriptedConn) IdleTime() time.Duration {
	return 0
}

func (c *scriptedConn) Timeout() time.Duration {
	return wspipe.DefaultTimeout
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestLoggerIsTransparent(t *testing.T) {
	conn := newScriptedConn(wspipe.NewTextMessage("hello"))
	pipeline := wspipe.NewPipeline(conn, nil)
	require.NoError(t, pipeline.Use(middleware.Logger(quietLogger())))
	ctx := context.Background()

	msg, err := pipeline.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(msg.Data))

	_, err = pipeline.SendMessage(ctx, wspipe.NewTextMessage("out"))
	require.NoError(t, err)
	require.Len(t, conn.sent, 1)
	assert.Equal(t, "out", string(conn.sent[0].Data))
}

func TestRecoveryConvertsPanicToError(t *testing.T) {
	conn := newScriptedConn()
	pipeline := wspipe.NewPipeline(conn, nil)
	require.NoError(t, pipeline.Use(
		middleware.Recovery(quietLogger()),
		&wspipe.Callback{
			Incoming: func(stack *wspipe.MessageStack) (*wspipe.Message, error) {
				panic("boom")
			},
		},
	))

	_, err := pipeline.ReceiveMessage(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestMessageIDTagsIncomingMessages(t *testing.T) {
	conn := newScriptedConn(
		wspipe.NewTextMessage("a"),
		wspipe.NewTextMessage("b"),
	)
	pipeline := wspipe.NewPipeline(conn, nil)
	require.NoError(t, pipeline.Use(middleware.MessageID()))
	ctx := context.Background()

	first, err := pipeline.ReceiveMessage(ctx)
	require.NoError(t, err)
	firstID, ok := first.GetMeta("messageId")
	require.True(t, ok)
	assert.NotEmpty(t, firstID)

	second, err := pipeline.ReceiveMessage(ctx)
	require.NoError(t, err)
	secondID, ok := second.GetMeta("messageId")
	require.True(t, ok)
	assert.NotEqual(t, firstID, secondID)
}

func TestRateLimitRefusesExcessMessages(t *testing.T) {
	conn := newScriptedConn(
		wspipe.NewTextMessage("1"),
		wspipe.NewTextMessage("2"),
		wspipe.NewTextMessage("3"),
	)
	pipeline := wspipe.NewPipeline(conn, nil)
	require.NoError(t, pipeline.Use(middleware.RateLimit(2, time.Minute)))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := pipeline.ReceiveMessage(ctx)
		require.NoError(t, err)
	}

	_, err := pipeline.ReceiveMessage(ctx)
	require.Error(t, err)
	var protoErr *wspipe.ProtocolError
	require.True(t, errors.As(err, &protoErr))
	assert.Equal(t, wspipe.StatusPolicyViolation, protoErr.Status)
}

func TestRateLimitIgnoresControlFrames(t *testing.T) {
	conn := newScriptedConn(
		wspipe.NewMessage(wspipe.KindPing, nil),
		wspipe.NewMessage(wspipe.KindPing, nil),
		wspipe.NewMessage(wspipe.KindPing, nil),
		wspipe.NewTextMessage("fine"),
	)
	pipeline := wspipe.NewPipeline(conn, nil)
	require.NoError(t, pipeline.Use(
		middleware.RateLimit(1, time.Minute),
		wspipe.NewPingResponder(),
	))

	msg, err := pipeline.ReceiveMessage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fine", string(msg.Data))
}

func TestAllowOriginAcceptsMatchingOrigin(t *testing.T) {
	allow, err := middleware.AllowOrigin("https://*.example.com")
	require.NoError(t, err)

	conn := newScriptedConn()
	conn.handshake = wspipe.NewHandshakeRequest("GET", "/ws")
	conn.handshake.Header.Set("Origin", "https://api.example.com")
	pipeline := wspipe.NewPipeline(conn, nil)
	require.NoError(t, pipeline.Use(allow))

	hs, err := pipeline.ReceiveHandshake(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/ws", hs.Path)
}

func TestAllowOriginVetoesUnknownOrigin(t *testing.T) {
	allow, err := middleware.AllowOrigin("https://*.example.com")
	require.NoError(t, err)

	conn := newScriptedConn()
	conn.handshake = wspipe.NewHandshakeRequest("GET", "/ws")
	conn.handshake.Header.Set("Origin", "https://evil.invalid")
	pipeline := wspipe.NewPipeline(conn, nil)
	require.NoError(t, pipeline.Use(allow))

	_, err = pipeline.ReceiveHandshake(context.Background())
	require.Error(t, err)
	var protoErr *wspipe.ProtocolError
	require.True(t, errors.As(err, &protoErr))
	assert.Equal(t, wspipe.StatusPolicyViolation, protoErr.Status)
}

func TestAllowOriginWithoutPatternsAllowsAll(t *testing.T) {
	allow, err := middleware.AllowOrigin()
	require.NoError(t, err)

	conn := newScriptedConn()
	conn.handshake = wspipe.NewHandshakeRequest("GET", "/ws")
	conn.handshake.Header.Set("Origin", "https://anywhere.invalid")
	pipeline := wspipe.NewPipeline(conn, nil)
	require.NoError(t, pipeline.Use(allow))

	_, err = pipeline.ReceiveHandshake(context.Background())
	assert.NoError(t, err)
}
