package wspipe

// PingResponder answers incoming pings with a pong mirroring the ping
// payload and keeps pulling until the chain produces a non-ping message, so
// pings are never surfaced to the application.
//
// The pong is written directly on the connection rather than through the
// outgoing chain: a control reply must stay deliverable even while outgoing
// middlewares (CloseHandler in particular) are blocking application sends.
type PingResponder struct{}

var _ IncomingMiddleware = &PingResponder{}

func NewPingResponder() *PingResponder {
	return &PingResponder{}
}

func (h *PingResponder) HandleIncoming(stack *MessageStack) (*Message, error) {
	for {
		msg, err := stack.NextIncoming()
		if err != nil {
			return nil, err
		}
		if msg.Kind != KindPing {
			return msg, nil
		}
		pong := NewMessage(KindPong, msg.Data)
		if err := stack.Conn().WriteMessage(stack.Context(), pong); err != nil {
			return nil, err
		}
	}
}
