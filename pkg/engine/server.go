package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hemaweb/featmock/pkg/config"
	"github.com/hemaweb/featmock/pkg/httputil"
	"github.com/hemaweb/featmock/pkg/logging"
	"github.com/hemaweb/featmock/pkg/metrics"
	"github.com/hemaweb/featmock/pkg/mock"
	"github.com/hemaweb/featmock/pkg/registry"
)

// LiveReloadPath is where the live-reload WebSocket is mounted.
const LiveReloadPath = "/__featmock/ws"

// shutdownTimeout bounds graceful shutdown in Stop.
const shutdownTimeout = 5 * time.Second

// Server is the standalone mock server.
type Server struct {
	cfg       *config.Config
	collector Collector
	routes    func() []mock.FeatureRoute
	metrics   *metrics.Mock
	live      http.Handler
	onError   ErrorHandler
	log       *slog.Logger

	handler    http.Handler
	httpServer *http.Server
	listener   net.Listener

	mu        sync.RWMutex
	running   bool
	startTime time.Time
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithLogger sets the operational logger for the server.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithCollector sets the collector used by /mock-info and, without
// WithRoutes, by the lazy mock middleware.
func WithCollector(c Collector) ServerOption {
	return func(s *Server) {
		s.collector = c
	}
}

// WithRoutes serves a live route source, typically a Reloader, instead of a
// one-time lazy collection.
func WithRoutes(routes func() []mock.FeatureRoute) ServerOption {
	return func(s *Server) {
		s.routes = routes
	}
}

// WithMetrics records request metrics and exposes them on /metrics.
func WithMetrics(m *metrics.Mock) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLiveReload mounts h on LiveReloadPath.
func WithLiveReload(h http.Handler) ServerOption {
	return func(s *Server) {
		s.live = h
	}
}

// WithErrorHandler sets the dispatcher's OnError hook.
func WithErrorHandler(fn ErrorHandler) ServerOption {
	return func(s *Server) {
		s.onError = fn
	}
}

// NewServer creates a server for cfg. Without WithCollector, a registry
// collector is built from cfg.Mock.
func NewServer(cfg *config.Config, opts ...ServerOption) *Server {
	if cfg == nil {
		cfg = &config.Config{
			Server: config.ServerConfig{Host: config.DefaultHost, Port: config.DefaultPort, Environment: config.EnvDevelopment},
			Mock:   config.MockConfig{Base: config.DefaultBase, Log: true},
		}
	}

	s := &Server{
		cfg: cfg,
		log: logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.collector == nil {
		s.collector = registry.New(registry.Options{
			Root:    cfg.Mock.Root,
			Globs:   cfg.Mock.Globs,
			Include: cfg.Mock.Include,
			Exclude: cfg.Mock.Exclude,
			Logger:  s.log,
		})
	}
	s.handler = s.buildHandler()
	return s
}

func (s *Server) dispatchOptions() Options {
	scale := 1.0
	if s.cfg.Mock.NoDelay {
		scale = 0
	}
	return Options{
		Base:       s.cfg.Mock.Base,
		Log:        s.cfg.Mock.Log,
		Logger:     s.log,
		OnError:    s.onError,
		Metrics:    s.metrics,
		DelayScale: scale,
	}
}

func (s *Server) buildHandler() http.Handler {
	notFound := http.HandlerFunc(httputil.WriteNotFound)

	var mocks http.Handler
	opts := s.dispatchOptions()
	if s.routes != nil {
		opts.Routes = s.routes
		mocks = NewDispatcher(opts).Middleware(notFound)
	} else {
		mocks = NewLazyMiddleware(s.collector, opts).Middleware(notFound)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /mock-info", s.handleMockInfo)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Registry().Handler())
	}
	if s.live != nil {
		mux.Handle(LiveReloadPath, s.live)
	}
	mux.Handle("/", mocks)

	return recoverMiddleware(s.log, corsMiddleware(mux))
}

// Handler returns the server's root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr(), err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	s.startTime = time.Now()
	s.log.Info("mock server started", "addr", ln.Addr().String(), "base", s.cfg.Mock.Base)
	return nil
}

// Stop gracefully shuts down the server, waiting up to 5 seconds for
// in-flight requests.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.running = false
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	s.log.Info("mock server stopped")
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr()
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the time since Start, or zero when not running.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startTime)
}
