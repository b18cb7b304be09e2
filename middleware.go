package wspipe

import "reflect"

// A middleware implements any subset of the five capability interfaces
// below. Registration rejects values implementing none of them.
//
// Middlewares are stateful and connection-scoped: one instance is bound to
// exactly one pipeline at a time. Reusing an instance across connections
// requires a fresh instance per connection.

type IncomingMiddleware interface {
	HandleIncoming(stack *MessageStack) (*Message, error)
}

type OutgoingMiddleware interface {
	HandleOutgoing(stack *MessageStack, msg *Message) (*Message, error)
}

type HandshakeIncomingMiddleware interface {
	HandleHandshakeIncoming(stack *HandshakeStack) (*Handshake, error)
}

type HandshakeOutgoingMiddleware interface {
	HandleHandshakeOutgoing(stack *HandshakeStack, hs *Handshake) (*Handshake, error)
}

type TickMiddleware interface {
	HandleTick(stack *TickStack) error
}

func validateMiddlewares(middlewares []any) error {
	if len(middlewares) == 0 {
		return ErrNoMiddlewares
	}
	for _, mw := range middlewares {
		if !hasCapability(mw) {
			return &InvalidMiddlewareError{
				Got: reflect.TypeOf(mw).String(),
			}
		}
	}
	return nil
}

func hasCapability(mw any) bool {
	switch mw.(type) {
	case IncomingMiddleware, OutgoingMiddleware,
		HandshakeIncomingMiddleware, HandshakeOutgoingMiddleware,
		TickMiddleware:
		return true
	}
	return false
}
