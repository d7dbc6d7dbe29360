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

	"github.com/mockhost/mockhost/internal/storage"
	"github.com/mockhost/mockhost/pkg/chaos"
	"github.com/mockhost/mockhost/pkg/config"
	"github.com/mockhost/mockhost/pkg/logging"
	"github.com/mockhost/mockhost/pkg/metrics"
	"github.com/mockhost/mockhost/pkg/mock"
)

// Server runs a Handler on an HTTP listener.
type Server struct {
	cfg        *config.ServerConfig
	store      storage.EndpointStore
	handler    *Handler
	log        *slog.Logger
	provider   metrics.Provider
	registry   *metrics.Registry
	sources    chaos.SourceFactory
	httpServer *http.Server
	listener   net.Listener
	mu         sync.RWMutex
	running    bool
	startTime  time.Time
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithStore sets the endpoint store. The default is an in-memory store.
func WithStore(store storage.EndpointStore) ServerOption {
	return func(s *Server) {
		s.store = store
	}
}

// WithLogger sets the operational logger for the server.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics sets the metrics provider and, optionally, the registry
// served at MetricsPath.
func WithMetrics(provider metrics.Provider, registry *metrics.Registry) ServerOption {
	return func(s *Server) {
		s.provider = provider
		s.registry = registry
	}
}

// WithSources sets where failure samples are drawn from. A factory from
// chaos.SeededStream is for debugging and reproducible runs only: it
// serializes draws across concurrent requests.
func WithSources(sources chaos.SourceFactory) ServerOption {
	return func(s *Server) {
		s.sources = sources
	}
}

// NewServer creates a new Server with the given configuration.
func NewServer(cfg *config.ServerConfig, opts ...ServerOption) *Server {
	if cfg == nil {
		cfg = config.DefaultServerConfig()
	}

	s := &Server{
		cfg: cfg,
		log: logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = storage.NewInMemoryStore()
	}
	if cfg.Project != "" {
		if _, scoped := s.store.(*storage.ProjectStore); !scoped {
			s.store = storage.NewProjectStore(s.store, cfg.Project)
		}
	}
	if s.sources == nil && cfg.ChaosSeed != 0 {
		s.sources = chaos.SeededStream(cfg.ChaosSeed)
	}

	h := NewHandler(s.store)
	h.SetLogger(s.log)
	h.SetMetrics(s.provider, s.registry)
	h.SetSources(s.sources)
	h.SetMaxBodySize(cfg.MaxBodyBytes)
	s.handler = h

	return s
}

// Load replaces the store's endpoints with endpoints, in order. Every
// endpoint is validated before the store is touched.
func (s *Server) Load(ctx context.Context, endpoints []*mock.Endpoint) error {
	if _, err := Compile(endpoints); err != nil {
		return err
	}
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing store: %w", err)
	}
	for _, ep := range endpoints {
		if err := s.store.Set(ctx, ep); err != nil {
			return fmt.Errorf("storing %s: %w", ep, err)
		}
	}
	s.log.Info("endpoints loaded", "count", len(endpoints))
	return nil
}

// Start begins serving. With port 0 a free port is chosen; Addr reports it.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("server is already running")
	}

	//nolint:gosec // G102: binding to all interfaces is intentional for a mock server
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.cfg.Port, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadTimeout:       time.Duration(s.cfg.ReadTimeout) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(s.cfg.WriteTimeout) * time.Second,
	}

	srv := s.httpServer
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	s.startTime = time.Now()
	s.log.Info("engine started", "addr", ln.Addr().String())
	return nil
}

// Stop shuts the server down, waiting up to the configured shutdown
// timeout for in-flight requests.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	timeout := time.Duration(s.cfg.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.running = false
	s.listener = nil
	s.log.Info("engine stopped")
	if err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}

// Addr returns the listen address while running, or "".
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns how long the server has been running.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startTime)
}

// Config returns the server configuration.
func (s *Server) Config() *config.ServerConfig { return s.cfg }

// Handler returns the request handler.
func (s *Server) Handler() *Handler { return s.handler }

// Store returns the endpoint store, scoped to the configured project.
func (s *Server) Store() storage.EndpointStore { return s.store }
