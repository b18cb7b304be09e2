package wspipe

import "context"

// The stacks below are one-shot cursors over a pipeline's middleware list.
// Each advance method finds the next middleware implementing the relevant
// capability, moves the cursor past it and invokes it with the stack itself,
// so the middleware can do work, delegate to the rest of the chain, do more
// work on the way back out, or decline to delegate at all. When the list is
// exhausted the advance falls through to the connection's base I/O (ticks
// have no base operation).
//
// A stack lives for exactly one trigger call and is strictly forward-moving.
// Incoming advances may legitimately be repeated by a middleware that
// consumes chain output (PingResponder does); once the cursor is exhausted a
// repeated pull reads from the connection directly. Outgoing and handshake
// advances run their terminal operation at most once; advancing again
// returns ErrStackSpent.

type MessageStack struct {
	pipeline *Pipeline
	ctx      context.Context
	pos      int
	spent    bool
}

func newMessageStack(ctx context.Context, p *Pipeline) *MessageStack {
	return &MessageStack{
		pipeline: p,
		ctx:      ctx,
	}
}

func (s *MessageStack) Conn() Conn {
	return s.pipeline.conn
}

func (s *MessageStack) Context() context.Context {
	return s.ctx
}

// NextIncoming delegates to the next incoming-capable middleware, or to the
// connection's base read when none remain.
func (s *MessageStack) NextIncoming() (*Message, error) {
	for s.pos < len(s.pipeline.middlewares) {
		mw := s.pipeline.middlewares[s.pos]
		s.pos++
		if incoming, ok := mw.(IncomingMiddleware); ok {
			return incoming.HandleIncoming(s)
		}
	}
	// The base read is the pipeline's suspension point: release the trigger
	// exclusion while blocked so ticks can run against an idle connection.
	// No middleware hook is executing while the read is parked here.
	s.pipeline.mu.Unlock()
	msg, err := s.pipeline.conn.ReadMessage(s.ctx)
	s.pipeline.mu.Lock()
	return msg, err
}

// NextOutgoing forwards msg to the next outgoing-capable middleware, or
// performs the connection's base write when none remain.
func (s *MessageStack) NextOutgoing(msg *Message) (*Message, error) {
	if s.spent {
		return nil, ErrStackSpent
	}
	for s.pos < len(s.pipeline.middlewares) {
		mw := s.pipeline.middlewares[s.pos]
		s.pos++
		if outgoing, ok := mw.(OutgoingMiddleware); ok {
			return outgoing.HandleOutgoing(s, msg)
		}
	}
	s.spent = true
	if err := s.pipeline.conn.WriteMessage(s.ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

type HandshakeStack struct {
	pipeline *Pipeline
	ctx      context.Context
	pos      int
	spent    bool
}

func newHandshakeStack(ctx context.Context, p *Pipeline) *HandshakeStack {
	return &HandshakeStack{
		pipeline: p,
		ctx:      ctx,
	}
}

func (s *HandshakeStack) Conn() Conn {
	return s.pipeline.conn
}

func (s *HandshakeStack) Context() context.Context {
	return s.ctx
}

func (s *HandshakeStack) NextIncoming() (*Handshake, error) {
	if s.spent {
		return nil, ErrStackSpent
	}
	for s.pos < len(s.pipeline.middlewares) {
		mw := s.pipeline.middlewares[s.pos]
		s.pos++
		if incoming, ok := mw.(HandshakeIncomingMiddleware); ok {
			return incoming.HandleHandshakeIncoming(s)
		}
	}
	s.spent = true
	return s.pipeline.conn.ReadHandshake(s.ctx)
}

func (s *HandshakeStack) NextOutgoing(hs *Handshake) (*Handshake, error) {
	if s.spent {
		return nil, ErrStackSpent
	}
	for s.pos < len(s.pipeline.middlewares) {
		mw := s.pipeline.middlewares[s.pos]
		s.pos++
		if outgoing, ok := mw.(HandshakeOutgoingMiddleware); ok {
			return outgoing.HandleHandshakeOutgoing(s, hs)
		}
	}
	s.spent = true
	if err := s.pipeline.conn.WriteHandshake(s.ctx, hs); err != nil {
		return nil, err
	}
	return hs, nil
}

type TickStack struct {
	pipeline *Pipeline
	ctx      context.Context
	pos      int
}

func newTickStack(ctx context.Context, p *Pipeline) *TickStack {
	return &TickStack{
		pipeline: p,
		ctx:      ctx,
	}
}

func (s *TickStack) Conn() Conn {
	return s.pipeline.conn
}

func (s *TickStack) Context() context.Context {
	return s.ctx
}

// NextTick forwards the tick to the next tick-capable middleware. Ticks have
// no transport counterpart, so exhausting the chain is a no-op.
func (s *TickStack) NextTick() error {
	for s.pos < len(s.pipeline.middlewares) {
		mw := s.pipeline.middlewares[s.pos]
		s.pos++
		if tick, ok := mw.(TickMiddleware); ok {
			return tick.HandleTick(s)
		}
	}
	return nil
}
