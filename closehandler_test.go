package wspipe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseHandlerPeerInitiated(t *testing.T) {
	conn := newFakeConn()
	conn.script(NewCloseMessage(StatusNormalClosure, "bye"))
	handler := NewCloseHandler()
	pipeline := NewPipeline(conn, nil)
	require.NoError(t, pipeline.Use(handler))

	msg, err := pipeline.ReceiveMessage(context.Background())
	require.NoError(t, err)

	// The original close message is surfaced to the caller.
	assert.Equal(t, KindClose, msg.Kind)
	assert.Equal(t, StatusNormalClosure, msg.CloseStatus())
	assert.Equal(t, "bye", msg.Reason)

	// A confirmation went out directly on the connection.
	require.Len(t, conn.sent, 1)
	assert.Equal(t, KindClose, conn.sent[0].Kind)
	assert.Equal(t, StatusNormalClosure, conn.sent[0].CloseStatus())

	// And the transport was torn down.
	assert.True(t, conn.closed)
	assert.Equal(t, StatusNormalClosure, conn.closeStatus)
	assert.Equal(t, "bye", conn.closeReason)
	assert.True(t, handler.Closing())
	assert.False(t, handler.InitiatedLocally())
}

func TestCloseHandlerPeerInitiatedWithoutStatus(t *testing.T) {
	conn := newFakeConn()
	conn.script(&Message{Kind: KindClose})
	pipeline := NewPipeline(conn, nil)
	require.NoError(t, pipeline.Use(NewCloseHandler()))

	_, err := pipeline.ReceiveMessage(context.Background())
	require.NoError(t, err)
	require.Len(t, conn.sent, 1)
	assert.Equal(t, StatusNormalClosure, conn.sent[0].CloseStatus())
}

func TestCloseHandlerSelfInitiated(t *testing.T) {
	conn := newFakeConn()
	handler := NewCloseHandler()
	pipeline := NewPipeline(conn, nil)
	require.NoError(t, pipeline.Use(handler))
	ctx := context.Background()

	// Initiating the close actually transmits the message.
	sent, err := pipeline.SendMessage(ctx, NewCloseMessage(StatusNormalClosure, ""))
	require.NoError(t, err)
	assert.Equal(t, KindClose, sent.Kind)
	require.Len(t, conn.sent, 1)
	assert.True(t, handler.Closing())
	assert.True(t, handler.InitiatedLocally())

	// Further sends are refused.
	_, err = pipeline.SendMessage(ctx, NewTextMessage("x"))
	assert.ErrorIs(t, err, ErrClosing)
	assert.Len(t, conn.sent, 1)

	// The peer's close is treated as confirmation: transport closed, no
	// second confirmation sent.
	conn.script(NewCloseMessage(StatusNormalClosure, ""))
	msg, err := pipeline.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, KindClose, msg.Kind)
	assert.True(t, conn.closed)
	assert.Len(t, conn.sent, 1)
}

func TestCloseHandlerRefusesSecondClose(t *testing.T) {
	conn := newFakeConn()
	pipeline := NewPipeline(conn, nil)
	require.NoError(t, pipeline.Use(NewCloseHandler()))
	ctx := context.Background()

	_, err := pipeline.SendMessage(ctx, NewCloseMessage(StatusGoingAway, ""))
	require.NoError(t, err)

	_, err = pipeline.SendMessage(ctx, NewCloseMessage(StatusGoingAway, ""))
	assert.ErrorIs(t, err, ErrClosing)
	assert.Len(t, conn.sent, 1)
}

func TestCloseHandlerPassesThroughWhileOpen(t *testing.T) {
	conn := newFakeConn()
	conn.script(NewTextMessage("in"))
	handler := NewCloseHandler()
	pipeline := NewPipeline(conn, nil)
	require.NoError(t, pipeline.Use(handler))
	ctx := context.Background()

	msg, err := pipeline.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "in", string(msg.Data))

	_, err = pipeline.SendMessage(ctx, NewTextMessage("out"))
	require.NoError(t, err)
	assert.Len(t, conn.sent, 1)
	assert.False(t, handler.Closing())
}

func TestCloseHandlerBlocksSendAfterPeerClose(t *testing.T) {
	conn := newFakeConn()
	conn.script(NewCloseMessage(StatusNormalClosure, ""))
	pipeline := NewPipeline(conn, nil)
	require.NoError(t, pipeline.Use(NewCloseHandler()))
	ctx := context.Background()

	_, err := pipeline.ReceiveMessage(ctx)
	require.NoError(t, err)

	_, err = pipeline.SendMessage(ctx, NewTextMessage("late"))
	assert.ErrorIs(t, err, ErrClosing)
}
