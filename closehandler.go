package wspipe

// CloseHandler runs the close handshake state machine. It answers a
// peer-initiated close with a confirmation, recognizes the peer's
// confirmation of a locally initiated close, and blocks all sends once a
// close is in flight in either direction.
//
// Instances are connection-scoped and one-shot: the flags are never reset.
type CloseHandler struct {
	closing          bool
	initiatedLocally bool
}

var (
	_ IncomingMiddleware = &CloseHandler{}
	_ OutgoingMiddleware = &CloseHandler{}
)

func NewCloseHandler() *CloseHandler {
	return &CloseHandler{}
}

// Closing reports whether a close message has been sent or received.
func (h *CloseHandler) Closing() bool {
	return h.closing
}

// InitiatedLocally reports whether this side sent the first close message.
func (h *CloseHandler) InitiatedLocally() bool {
	return h.initiatedLocally
}

func (h *CloseHandler) HandleIncoming(stack *MessageStack) (*Message, error) {
	msg, err := stack.NextIncoming()
	if err != nil {
		return nil, err
	}
	if msg.Kind != KindClose {
		return msg, nil
	}
	if h.closing {
		// We initiated; this close is the peer's confirmation. The
		// handshake is complete, tear down the transport.
		if err := stack.Conn().Close(msg.CloseStatus(), msg.Reason); err != nil {
			return msg, err
		}
		return msg, nil
	}
	// Peer-initiated close. Confirm directly on the connection, bypassing
	// the outgoing chain, then tear down the transport.
	h.closing = true
	confirm := NewCloseMessage(msg.CloseStatus(), msg.Reason)
	if err := stack.Conn().WriteMessage(stack.Context(), confirm); err != nil {
		return nil, err
	}
	if err := stack.Conn().Close(msg.CloseStatus(), msg.Reason); err != nil {
		return msg, err
	}
	return msg, nil
}

func (h *CloseHandler) HandleOutgoing(stack *MessageStack, msg *Message) (*Message, error) {
	if h.closing {
		// No further messages may be sent once a close is in flight.
		return msg, ErrClosing
	}
	if msg.Kind == KindClose {
		h.closing = true
		h.initiatedLocally = true
	}
	return stack.NextOutgoing(msg)
}
