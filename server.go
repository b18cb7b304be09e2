package wspipe

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// MessageHandler receives every application message that survives the
// incoming chain.
type MessageHandler func(ctx context.Context, pipeline *Pipeline, msg *Message)

// Server upgrades HTTP requests to WebSocket connections and runs one
// pipeline per connection. Each connection gets fresh instances of the
// protocol middlewares (CloseHandler, PingResponder, PingInterval) followed
// by the middlewares registered with Use, in registration order.
type Server struct {
	config      *Config
	logger      *logrus.Logger
	middlewares []func() any
	onMessage   MessageHandler
}

var _ http.Handler = &Server{}

func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{
		config: config,
		logger: config.NewLogger(),
	}
}

func (s *Server) SetLogger(logger *logrus.Logger) {
	s.logger = logger
}

// Use registers a middleware factory. Middlewares are stateful and
// connection-scoped, so the server takes a constructor and calls it once per
// connection rather than sharing one instance.
func (s *Server) Use(factories ...func() any) error {
	if len(factories) == 0 {
		return ErrNoMiddlewares
	}
	for _, factory := range factories {
		if err := validateMiddlewares([]any{factory()}); err != nil {
			return err
		}
	}
	s.middlewares = append(s.middlewares, factories...)
	return nil
}

func (s *Server) OnMessage(handler MessageHandler) {
	s.onMessage = handler
}

func (s *Server) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	if s.isWebsocketUpgradeRequest(req) {
		s.handleWebsocketConnection(res, req)
		return
	}

	res.WriteHeader(400)

	if _, err := res.Write([]byte("Bad Request. Expected websocket upgrade request")); err != nil {
		s.logger.WithError(err).Error("failed to write error response")
	}
}

func (s *Server) isWebsocketUpgradeRequest(req *http.Request) bool {
	return req.Header.Get("Upgrade") == "websocket"
}

func (s *Server) handleWebsocketConnection(res http.ResponseWriter, req *http.Request) {
	origins := s.config.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	conn, err := websocket.Accept(res, req, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		s.logger.WithError(err).Error("failed to accept websocket connection")
		return
	}
	conn.SetReadLimit(s.config.MaxMessageSize)

	request := HandshakeFromRequest(req)
	wsConn := NewWebSocketConn(conn,
		WithHandshake(request, nil),
		WithTimeout(s.config.IdleTimeout),
	)

	pipeline := NewPipeline(wsConn, s.logger)
	if err := pipeline.Use(
		NewCloseHandler(),
		NewPingResponder(),
		NewPingInterval(s.config.PingInterval),
	); err != nil {
		s.logger.WithError(err).Error("failed to register protocol middlewares")
		return
	}
	for _, factory := range s.middlewares {
		if err := pipeline.Use(factory()); err != nil {
			s.logger.WithError(err).Error("failed to register middleware")
			return
		}
	}

	ctx := req.Context()
	log := s.logger.WithField("pipelineId", pipeline.ID())

	// Whatever ends the connection, the socket must not be left hanging.
	// On a completed close handshake this is a no-op.
	defer func() {
		if err := wsConn.Close(StatusInternalError, ""); err != nil {
			log.WithError(err).Error("failed to close connection")
		}
	}()

	// The upgrade is already on the wire; the handshake pipeline runs over
	// the captured messages so middlewares can inspect, annotate or veto.
	if _, err := pipeline.ReceiveHandshake(ctx); err != nil {
		log.WithError(err).Warn("handshake rejected")
		if closeErr := wsConn.Close(StatusPolicyViolation, "handshake rejected"); closeErr != nil {
			log.WithError(closeErr).Error("failed to close rejected connection")
		}
		return
	}
	response := NewHandshakeResponse(http.StatusSwitchingProtocols)
	if _, err := pipeline.SendHandshake(ctx, response); err != nil {
		log.WithError(err).Error("outgoing handshake failed")
		return
	}

	stopTicks := s.startTicker(ctx, pipeline, log)
	defer stopTicks()

	s.readLoop(ctx, pipeline, log)
}

// HandleConnection runs the pipeline loop over an externally established
// connection. It does not return until the connection is done.
func (s *Server) HandleConnection(ctx context.Context, conn Conn) {
	pipeline := NewPipeline(conn, s.logger)
	if err := pipeline.Use(
		NewCloseHandler(),
		NewPingResponder(),
		NewPingInterval(s.config.PingInterval),
	); err != nil {
		s.logger.WithError(err).Error("failed to register protocol middlewares")
		return
	}
	for _, factory := range s.middlewares {
		if err := pipeline.Use(factory()); err != nil {
			s.logger.WithError(err).Error("failed to register middleware")
			return
		}
	}

	log := s.logger.WithField("pipelineId", pipeline.ID())
	defer func() {
		if err := conn.Close(StatusInternalError, ""); err != nil {
			log.WithError(err).Error("failed to close connection")
		}
	}()
	stopTicks := s.startTicker(ctx, pipeline, log)
	defer stopTicks()

	s.readLoop(ctx, pipeline, log)
}

// startTicker drives the tick chain on a fixed cadence. The pipeline itself
// stays synchronous; this goroutine is the server's choice of tick
// granularity.
func (s *Server) startTicker(ctx context.Context, pipeline *Pipeline, log *logrus.Entry) func() {
	interval := s.config.PingInterval / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if err := pipeline.Tick(ctx); err != nil {
					log.WithError(err).Debug("tick failed")
					return
				}
			}
		}
	}()
	return func() { close(done) }
}

func (s *Server) readLoop(ctx context.Context, pipeline *Pipeline, log *logrus.Entry) {
	for {
		msg, err := pipeline.ReceiveMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.WithError(err).Debug("receive failed")
			}
			return
		}
		if msg.Kind == KindClose {
			log.WithFields(logrus.Fields{
				"status": msg.CloseStatus(),
				"reason": msg.Reason,
			}).Debug("connection closed")
			return
		}
		if s.onMessage != nil {
			s.onMessage(ctx, pipeline, msg)
		}
	}
}

// HandshakeFromRequest captures an upgrade request as a handshake message
// for the incoming handshake chain.
func HandshakeFromRequest(req *http.Request) *Handshake {
	hs := NewHandshakeRequest(req.Method, req.URL.RequestURI())
	hs.Header = req.Header.Clone()
	hs.SetMeta("remoteAddr", req.RemoteAddr)
	return hs
}
