package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/cyfral-controller/internal/infrastructure/config"
	"github.com/nerrad567/cyfral-controller/internal/infrastructure/logging"
	"github.com/nerrad567/cyfral-controller/internal/intercom"
	"github.com/nerrad567/cyfral-controller/internal/journal"
)

const gracefulShutdownTimeout = 10 * time.Second

// Controller is the part of intercom.Controller the API drives.
type Controller interface {
	Snapshot(ctx context.Context) (intercom.Status, error)
	Submit(ctx context.Context, cmd intercom.Command) error
}

// EventLister lists journal entries.
type EventLister interface {
	List(ctx context.Context, filter journal.Filter) (*journal.ListResult, error)
}

// HealthChecker is implemented by the database, MQTT and InfluxDB clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the API server's collaborators.
type Deps struct {
	Config     config.APIConfig
	Logger     *logging.Logger
	Controller Controller
	Journal    EventLister              // nil when the journal is disabled
	Checks     map[string]HealthChecker // reported by /health under these names
	Hub        *Hub                     // nil disables /ws
	Version    string
}

// Server is the HTTP API server.
type Server struct {
	cfg        config.APIConfig
	logger     *logging.Logger
	controller Controller
	journal    EventLister
	checks     map[string]HealthChecker
	hub        *Hub
	version    string

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
}

// New validates deps and returns a server that is not yet listening.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}

	return &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		controller: deps.Controller,
		journal:    deps.Journal,
		checks:     deps.Checks,
		hub:        deps.Hub,
		version:    deps.Version,
	}, nil
}

// Start binds the listener and serves in the background until Close.
//
// Returns:
//   - error: If the address cannot be bound (port in use, bad host)
func (s *Server) Start(_ context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	read := time.Duration(s.cfg.Timeouts.Read) * time.Second
	srv := &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       read,
		ReadHeaderTimeout: read,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.logger.Info("API server listening", "address", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Close waits up to 10 seconds for in-flight requests, then stops serving.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if s.hub != nil {
		s.hub.Close()
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
