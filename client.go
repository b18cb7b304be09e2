package wspipe

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

type DialOptions struct {
	Header      http.Header
	Config      *Config
	Logger      *logrus.Logger
	Middlewares []any
}

// Dial establishes a client connection and returns a pipeline wired with the
// protocol middlewares followed by any middlewares from opts, in order. The
// handshake chains have already run by the time Dial returns.
func Dial(ctx context.Context, url string, opts *DialOptions) (*Pipeline, error) {
	if opts == nil {
		opts = &DialOptions{}
	}
	config := opts.Config
	if config == nil {
		config = DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = config.NewLogger()
	}

	conn, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: opts.Header,
	})
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(config.MaxMessageSize)

	response := NewHandshakeResponse(http.StatusSwitchingProtocols)
	if resp != nil {
		response.Status = resp.StatusCode
		response.Header = resp.Header.Clone()
	}
	wsConn := NewWebSocketConn(conn,
		WithHandshake(response, nil),
		WithTimeout(config.IdleTimeout),
	)

	pipeline := NewPipeline(wsConn, logger)
	if err := pipeline.Use(
		NewCloseHandler(),
		NewPingResponder(),
		NewPingInterval(config.PingInterval),
	); err != nil {
		return nil, err
	}
	if len(opts.Middlewares) > 0 {
		if err := pipeline.Use(opts.Middlewares...); err != nil {
			return nil, err
		}
	}

	// On the client side the response is the inbound handshake message.
	if _, err := pipeline.ReceiveHandshake(ctx); err != nil {
		if closeErr := conn.Close(StatusPolicyViolation, "handshake rejected"); closeErr != nil {
			logger.WithError(closeErr).Error("failed to close rejected connection")
		}
		return nil, err
	}

	return pipeline, nil
}
