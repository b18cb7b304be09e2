package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	wspipe "github.com/snapflowio/wspipe"
)

// Logger logs every message that crosses the pipeline, with the time the
// rest of the chain took.
func Logger(logger *logrus.Logger) *wspipe.Callback {
	if logger == nil {
		logger = logrus.New()
	}
	return &wspipe.Callback{
		Incoming: func(stack *wspipe.MessageStack) (*wspipe.Message, error) {
			start := time.Now()
			msg, err := stack.NextIncoming()
			entry := logger.WithField("duration", time.Since(start))
			if err != nil {
				entry.WithError(err).Debug("incoming message failed")
				return nil, err
			}
			entry.WithFields(logrus.Fields{
				"kind": msg.Kind.String(),
				"size": len(msg.Data),
			}).Debug("incoming message")
			return msg, nil
		},
		Outgoing: func(stack *wspipe.MessageStack, msg *wspipe.Message) (*wspipe.Message, error) {
			start := time.Now()
			sent, err := stack.NextOutgoing(msg)
			entry := logger.WithFields(logrus.Fields{
				"kind":     msg.Kind.String(),
				"size":     len(msg.Data),
				"duration": time.Since(start),
			})
			if err != nil {
				entry.WithError(err).Debug("outgoing message failed")
				return nil, err
			}
			entry.Debug("outgoing message")
			return sent, nil
		},
	}
}

// Recovery converts panics from the rest of the chain into errors so one
// misbehaving middleware cannot take down the connection's read loop.
func Recovery(logger *logrus.Logger) *wspipe.Callback {
	if logger == nil {
		logger = logrus.New()
	}
	recovered := func(r any) error {
		logger.WithFields(logrus.Fields{
			"panic": fmt.Sprintf("%v", r),
			"stack": string(debug.Stack()),
		}).Error("panic recovered in middleware chain")
		return fmt.Errorf("middleware panic: %v", r)
	}
	return &wspipe.Callback{
		Incoming: func(stack *wspipe.MessageStack) (msg *wspipe.Message, err error) {
			defer func() {
				if r := recover(); r != nil {
					msg, err = nil, recovered(r)
				}
			}()
			return stack.NextIncoming()
		},
		Outgoing: func(stack *wspipe.MessageStack, msg *wspipe.Message) (sent *wspipe.Message, err error) {
			defer func() {
				if r := recover(); r != nil {
					sent, err = nil, recovered(r)
				}
			}()
			return stack.NextOutgoing(msg)
		},
	}
}

// MessageID tags each incoming message with a fresh ID under the "messageId"
// meta key.
func MessageID() *wspipe.Callback {
	return &wspipe.Callback{
		Incoming: func(stack *wspipe.MessageStack) (*wspipe.Message, error) {
			msg, err := stack.NextIncoming()
			if err != nil {
				return nil, err
			}
			msg.SetMeta("messageId", uuid.NewString())
			return msg, nil
		},
	}
}

// RateLimit refuses incoming application messages beyond maxMessages per
// window. Control frames are not counted. Instances are connection-scoped;
// use one per connection.
func RateLimit(maxMessages int, window time.Duration) *wspipe.Callback {
	var (
		count     int
		resetTime time.Time
	)
	return &wspipe.Callback{
		Incoming: func(stack *wspipe.MessageStack) (*wspipe.Message, error) {
			msg, err := stack.NextIncoming()
			if err != nil {
				return nil, err
			}
			if msg.Kind.IsControl() {
				return msg, nil
			}
			now := time.Now()
			if now.After(resetTime) {
				count = 0
				resetTime = now.Add(window)
			}
			count++
			if count > maxMessages {
				return nil, &wspipe.ProtocolError{
					Status: wspipe.StatusPolicyViolation,
					Reason: "rate limit exceeded",
				}
			}
			return msg, nil
		},
	}
}

// AllowOrigin vetoes handshakes whose Origin header matches none of the
// given patterns. Patterns use the wspipe.Pattern syntax; no patterns means
// every origin is allowed.
func AllowOrigin(patternStrs ...string) (*wspipe.Callback, error) {
	patterns := make([]*wspipe.Pattern, 0, len(patternStrs))
	for _, str := range patternStrs {
		pattern, err := wspipe.NewPattern(str)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, pattern)
	}
	return &wspipe.Callback{
		HandshakeIncoming: func(stack *wspipe.HandshakeStack) (*wspipe.Handshake, error) {
			hs, err := stack.NextIncoming()
			if err != nil {
				return nil, err
			}
			if len(patterns) == 0 {
				return hs, nil
			}
			origin := hs.Header.Get("Origin")
			for _, pattern := range patterns {
				if pattern.Match(origin) {
					return hs, nil
				}
			}
			return nil, &wspipe.ProtocolError{
				Status: wspipe.StatusPolicyViolation,
				Reason: fmt.Sprintf("origin not allowed: %s", origin),
			}
		},
	}, nil
}
