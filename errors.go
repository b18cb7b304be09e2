package wspipe

import (
	"errors"
	"fmt"
)

var (
	ErrNoMiddlewares  = errors.New("no middlewares provided")
	ErrNoCapabilities = errors.New("middleware implements no pipeline capabilities")
	ErrClosing        = errors.New("connection is closing, message not sent")
	ErrStackSpent     = errors.New("stack already ran its terminal operation")
	ErrNoHandshake    = errors.New("no handshake available on this connection")
)

// ProtocolError reports a violation of the WebSocket protocol or of a policy
// enforced during the handshake. The owning connection is unusable after one
// is surfaced.
type ProtocolError struct {
	Status Status
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error (%d): %s: %v", e.Status, e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol error (%d): %s", e.Status, e.Reason)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

type InvalidMiddlewareError struct {
	Got string
}

func (e *InvalidMiddlewareError) Error() string {
	return fmt.Sprintf("invalid middleware type %s: %v", e.Got, ErrNoCapabilities)
}

func (e *InvalidMiddlewareError) Unwrap() error {
	return ErrNoCapabilities
}
