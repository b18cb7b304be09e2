package wspipe

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Pipeline binds an ordered middleware list to a single connection. The
// trigger methods are the only entry points: each builds a fresh one-shot
// stack over the list and runs it to completion on the calling goroutine.
//
// The list is append-only; insertion order is call order in every direction,
// and changing it while a stack is running is undefined.
//
// Trigger invocations on one pipeline are mutually exclusive: middleware
// hooks never run concurrently, so middleware state needs no locking. The
// one suspension point is the base read at the bottom of the incoming chain,
// where the exclusion is released so a tick can reach an idle connection.
// Middlewares must not call trigger methods on their own pipeline; they work
// through the stack and the connection.
type Pipeline struct {
	id          string
	conn        Conn
	middlewares []any
	logger      *logrus.Logger
	mu          sync.Mutex
}

func NewPipeline(conn Conn, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = logrus.New()
	}
	return &Pipeline{
		id:     uuid.NewString(),
		conn:   conn,
		logger: logger,
	}
}

func (p *Pipeline) ID() string {
	return p.id
}

func (p *Pipeline) Conn() Conn {
	return p.conn
}

func (p *Pipeline) Logger() *logrus.Logger {
	return p.logger
}

// Use appends middlewares to the pipeline. Every value must implement at
// least one capability interface.
func (p *Pipeline) Use(middlewares ...any) error {
	if err := validateMiddlewares(middlewares); err != nil {
		return err
	}
	p.middlewares = append(p.middlewares, middlewares...)
	return nil
}

// ReceiveMessage pulls the next message through the incoming chain.
func (p *Pipeline) ReceiveMessage(ctx context.Context) (*Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return newMessageStack(ctx, p).NextIncoming()
}

// SendMessage pushes msg through the outgoing chain toward the wire and
// returns the message as finally transmitted.
func (p *Pipeline) SendMessage(ctx context.Context, msg *Message) (*Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return newMessageStack(ctx, p).NextOutgoing(msg)
}

// ReceiveHandshake pulls the handshake message through the incoming
// handshake chain. Invoked once per connection, before message traffic.
func (p *Pipeline) ReceiveHandshake(ctx context.Context) (*Handshake, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return newHandshakeStack(ctx, p).NextIncoming()
}

// SendHandshake pushes hs through the outgoing handshake chain.
func (p *Pipeline) SendHandshake(ctx context.Context, hs *Handshake) (*Handshake, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return newHandshakeStack(ctx, p).NextOutgoing(hs)
}

// Tick broadcasts a timer tick through the tick chain.
func (p *Pipeline) Tick(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return newTickStack(ctx, p).NextTick()
}
