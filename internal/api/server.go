package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/obs-scene-scheduler/internal/history"
	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/config"
	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/logging"
	"github.com/nerrad567/obs-scene-scheduler/internal/schedule"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// StatusSource reports the window the scheduler last applied.
// switcher.Controller satisfies it.
type StatusSource interface {
	Current() schedule.Window
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	Logger     *logging.Logger
	Status     StatusSource
	Scenes     map[schedule.Window]string
	History    history.Repository // nil when history is disabled
	Hub        *Hub               // nil creates a hub owned by the server
	Checks     map[string]HealthChecker
	OBSAddress string
	Version    string
}

// Server is the HTTP status server.
//
// It is created with New, started with Start and stopped with Close.
type Server struct {
	cfg        config.APIConfig
	logger     *logging.Logger
	status     StatusSource
	scenes     map[schedule.Window]string
	history    history.Repository
	hub        *Hub
	cors       corsPolicy
	checks     map[string]HealthChecker
	obsAddress string
	version    string
	started    time.Time

	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Logger and Status are required; History, Hub and Checks are optional
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Status == nil {
		return nil, fmt.Errorf("status source is required")
	}

	s := &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		status:     deps.Status,
		scenes:     deps.Scenes,
		history:    deps.History,
		hub:        deps.Hub,
		cors:       newCORSPolicy(deps.Config.CORS),
		checks:     deps.Checks,
		obsAddress: deps.OBSAddress,
		version:    deps.Version,
		started:    time.Now(),
	}
	if s.hub == nil {
		s.hub = NewHub(deps.Config.WebSocket, deps.Logger)
	}

	return s, nil
}

// Start binds the listener and serves in a background goroutine.
//
// Binding happens before Start returns, so a port already in use is
// reported here rather than logged later.
//
// Parameters:
//   - ctx: Parent of the hub's lifetime
//
// Returns:
//   - error: If the address cannot be bound
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening",
		"address", ln.Addr().String(),
		"auth", s.cfg.JWT.Secret != "",
	)
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s == nil || s.server == nil {
		return nil
	}

	// Stops the hub, which closes every WebSocket client.
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
