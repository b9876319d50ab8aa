package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-go/scribble/pkg/middleware"
	"github.com/vango-go/scribble/pkg/protocol"
	"github.com/vango-go/scribble/pkg/tick"
)

// Server is the WebSocket host for an App.
type Server struct {
	app      App
	config   *ServerConfig
	sessions *SessionManager
	upgrader websocket.Upgrader

	scheduler *tick.Scheduler
	fanout    tick.Fanout
	metrics   *Metrics
	tracer    trace.Tracer

	started  time.Time
	ticks    atomic.Uint64
	overruns atomic.Uint64

	handlerOnce sync.Once
	handler     http.Handler

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	advertiser *Advertiser

	logger *slog.Logger
}

// New creates a Server hosting app. A nil config uses DefaultServerConfig.
func New(app App, config *ServerConfig) *Server {
	config = config.withDefaults()
	logger := config.Logger.With("component", "server")

	s := &Server{
		app:      app,
		config:   config,
		sessions: NewSessionManager(config.SessionConfig, config.MaxSessions, config.Logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		metrics: NewMetrics(config.Registry),
		tracer:  newTracer(config.TracerProvider),
		started: time.Now(),
		logger:  logger,
	}

	limit := 1
	if config.Fanout {
		limit = config.FanoutLimit
	}
	s.fanout = tick.Fanout{
		Concurrency: limit,
		Logger:      config.Logger,
		OnError:     func(int, error) { s.metrics.renderErrors.Inc() },
	}
	s.scheduler = tick.New(tick.Config{
		Rate:   config.TickRate,
		Clock:  config.Clock,
		Logger: config.Logger,
		OnTick: s.onTick,
	})

	s.sessions.SetOnSessionCreate(func(*Session) { s.metrics.sessionOpened() })
	s.sessions.SetOnSessionClose(func(sess *Session) {
		s.metrics.sessionClosed()
		if s.app != nil {
			s.app.Disconnect(sess)
		}
	})
	s.sessions.SetOnFrameRejected(func(*Session) { s.metrics.rejectedFrames.Inc() })

	return s
}

// Handler returns the HTTP handler with the WebSocket, health and metrics
// routes. The handler is built once; later calls return the same value.
func (s *Server) Handler() http.Handler {
	s.handlerOnce.Do(func() { s.handler = s.routes() })
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Prometheus(middleware.WithRegistry(s.metrics.Registry())))
	r.Use(middleware.OpenTelemetry(
		middleware.WithTracerProvider(s.config.TracerProvider),
		middleware.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/metrics" }),
	))

	r.Get("/ws", s.HandleWebSocket)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	return r
}

// HandleWebSocket upgrades the request and admits a session.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	conn.SetReadLimit(s.config.SessionConfig.MaxMessageSize)

	sess, err := s.sessions.Create(conn, clientIP(r))
	if err != nil {
		code := protocol.ErrServerError
		if errors.Is(err, ErrMaxSessionsReached) {
			code = protocol.ErrServerFull
		}
		s.logger.Warn("session rejected", "error", err, "remote", r.RemoteAddr)
		rejectConn(conn, code, err.Error(), s.config.SessionConfig.WriteTimeout)
		return
	}

	if err := s.admit(sess); err != nil {
		s.logger.Error("session admission failed", "session_id", sess.ID.String(), "error", err)
		sess.Close()
		return
	}
	sess.ready.Store(true)
	sess.Start()
}

// admit runs the App's connect hook and greets the client.
func (s *Server) admit(sess *Session) error {
	if s.app != nil {
		if err := s.app.Connect(sess); err != nil {
			sess.sendErrorMessage(protocol.ErrServerError, "connect failed")
			return NewSessionError(sess.ID.String(), "connect", err)
		}
	}
	hello := &protocol.Hello{
		SessionID: sess.ID.String(),
		Number:    sess.Number,
		TickRate:  float32(s.config.TickRate),
	}
	return sess.Send(protocol.FrameHello, protocol.EncodeHello(hello))
}

// rejectConn sends a fatal error frame on a connection that never became a
// session, then closes it.
func rejectConn(conn *websocket.Conn, code protocol.ErrorCode, msg string, timeout time.Duration) {
	frame := protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(protocol.NewFatalError(code, msg)))
	conn.SetWriteDeadline(time.Now().Add(timeout))
	conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseTryAgainLater, msg),
		time.Now().Add(time.Second))
	conn.Close()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RenderTick renders one tick for every live session. A failing session is
// logged and counted; it never prevents the others from rendering. The
// returned error wraps ErrRenderFailed when any session failed.
func (s *Server) RenderTick(ctx context.Context, seq uint64) error {
	sessions := s.sessions.Snapshot()
	ctx, span := s.startTickSpan(ctx, seq, len(sessions))

	failed := s.fanout.Run(ctx, len(sessions), func(ctx context.Context, i int) error {
		return s.renderSession(ctx, sessions[i], seq)
	})

	var err error
	if failed > 0 {
		err = fmt.Errorf("%w: %d of %d sessions", ErrRenderFailed, failed, len(sessions))
	}
	endSpan(span, err)
	return err
}

func (s *Server) renderSession(ctx context.Context, sess *Session, seq uint64) (err error) {
	if !sess.IsReady() || s.app == nil {
		return nil
	}
	ctx, span := s.startRenderSpan(ctx, sess)
	defer func() { endSpan(span, err) }()

	payload, err := s.app.Render(ctx, sess, seq)
	if err != nil {
		return NewSessionError(sess.ID.String(), "render", err)
	}
	if payload == nil {
		return nil
	}

	if err := sess.Send(protocol.FrameRender, payload); err != nil {
		if errors.Is(err, ErrSessionClosed) {
			return nil
		}
		sess.Close()
		return err
	}
	s.metrics.bytesSent.Add(float64(protocol.FrameHeaderSize + len(payload)))
	return nil
}

func (s *Server) onTick(st tick.Stats) {
	s.ticks.Add(1)
	if st.Overrun {
		s.overruns.Add(1)
	}
	s.metrics.observeTick(st)
}

// Run listens on the configured address, advertises on the LAN if
// configured, and runs the tick loop until ctx is done. It then shuts the
// server down and returns nil, or the first fatal error.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.config.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.app == nil {
		ln.Close()
		return ErrNoApp
	}

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.httpServer = httpServer
	s.listener = ln
	s.mu.Unlock()

	if s.config.Discovery != nil {
		adv, err := Advertise(s.config.Discovery, listenerPort(ln), s.config.Logger)
		if err != nil {
			// The host is still reachable by address.
			s.logger.Warn("LAN advertisement unavailable", "error", err)
		} else {
			s.mu.Lock()
			s.advertiser = adv
			s.mu.Unlock()
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String(), "tick_rate", s.config.TickRate)
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server: serve: %w", err)
		}
	}()
	go func() {
		err := s.scheduler.Run(runCtx, s.RenderTick)
		if err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutting down...")
	case runErr = <-errCh:
	}
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer cancelShutdown()
	if err := s.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown closes every session, stops the advertisement and the HTTP
// server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	adv := s.advertiser
	s.advertiser = nil
	s.mu.Unlock()

	var errs []error
	if err := s.sessions.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("sessions: %w", err))
	}
	if err := adv.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("discovery: %w", err))
	}
	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// Addr returns the listener address once serving, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func listenerPort(ln net.Listener) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Stats())
}

// Stats returns a snapshot of server counters.
func (s *Server) Stats() ServerStats {
	ms := s.sessions.Stats()
	return ServerStats{
		ActiveSessions: ms.Active,
		TotalSessions:  ms.TotalCreated,
		ClosedSessions: ms.TotalClosed,
		PeakSessions:   ms.Peak,
		Ticks:          s.ticks.Load(),
		Overruns:       s.overruns.Load(),
		TickPeriod:     s.scheduler.Period(),
		Uptime:         time.Since(s.started),
		CollectedAt:    time.Now(),
	}
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Metrics returns the server's Prometheus collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Config returns the effective configuration.
func (s *Server) Config() *ServerConfig {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}
