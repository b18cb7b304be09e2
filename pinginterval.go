package wspipe

import "time"

// PingInterval sends a heartbeat ping whenever the connection has been idle
// for at least the configured interval. With a zero interval it falls back
// to the connection's configured timeout.
//
// The ping goes directly to the connection, not through the outgoing chain,
// so a heartbeat cannot be blocked by unrelated outgoing middlewares. The
// tick is always forwarded to the rest of the chain.
type PingInterval struct {
	interval time.Duration
}

var _ TickMiddleware = &PingInterval{}

func NewPingInterval(interval time.Duration) *PingInterval {
	return &PingInterval{
		interval: interval,
	}
}

func (h *PingInterval) HandleTick(stack *TickStack) error {
	interval := h.interval
	if interval <= 0 {
		interval = stack.Conn().Timeout()
	}
	if interval > 0 && stack.Conn().IdleTime() >= interval {
		ping := NewMessage(KindPing, nil)
		// The write counts as activity on the connection, which resets the
		// idle clock until the next quiet interval elapses.
		if err := stack.Conn().WriteMessage(stack.Context(), ping); err != nil {
			return err
		}
	}
	return stack.NextTick()
}
