package wspipe

// Callback adapts plain functions to the middleware contract. Populate any
// subset of the fields; each hook delegates to its function, which is fully
// responsible for calling (or not calling) the stack's advance method. A nil
// field makes the Callback transparent for that event: the hook forwards to
// the next stage unmodified.
type Callback struct {
	Incoming          func(stack *MessageStack) (*Message, error)
	Outgoing          func(stack *MessageStack, msg *Message) (*Message, error)
	HandshakeIncoming func(stack *HandshakeStack) (*Handshake, error)
	HandshakeOutgoing func(stack *HandshakeStack, hs *Handshake) (*Handshake, error)
	Tick              func(stack *TickStack) error
}

var (
	_ IncomingMiddleware          = &Callback{}
	_ OutgoingMiddleware          = &Callback{}
	_ HandshakeIncomingMiddleware = &Callback{}
	_ HandshakeOutgoingMiddleware = &Callback{}
	_ TickMiddleware              = &Callback{}
)

func (c *Callback) HandleIncoming(stack *MessageStack) (*Message, error) {
	if c.Incoming == nil {
		return stack.NextIncoming()
	}
	return c.Incoming(stack)
}

func (c *Callback) HandleOutgoing(stack *MessageStack, msg *Message) (*Message, error) {
	if c.Outgoing == nil {
		return stack.NextOutgoing(msg)
	}
	return c.Outgoing(stack, msg)
}

func (c *Callback) HandleHandshakeIncoming(stack *HandshakeStack) (*Handshake, error) {
	if c.HandshakeIncoming == nil {
		return stack.NextIncoming()
	}
	return c.HandshakeIncoming(stack)
}

func (c *Callback) HandleHandshakeOutgoing(stack *HandshakeStack, hs *Handshake) (*Handshake, error) {
	if c.HandshakeOutgoing == nil {
		return stack.NextOutgoing(hs)
	}
	return c.HandshakeOutgoing(stack, hs)
}

func (c *Callback) HandleTick(stack *TickStack) error {
	if c.Tick == nil {
		return stack.NextTick()
	}
	return c.Tick(stack)
}
