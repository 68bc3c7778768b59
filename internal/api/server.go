package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/rfsocket-core/internal/audit"
	"github.com/nerrad567/rfsocket-core/internal/auth"
	"github.com/nerrad567/rfsocket-core/internal/dispatch"
	"github.com/nerrad567/rfsocket-core/internal/infrastructure/config"
	"github.com/nerrad567/rfsocket-core/internal/infrastructure/logging"
	"github.com/nerrad567/rfsocket-core/internal/metrics"
	"github.com/nerrad567/rfsocket-core/internal/socket"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Security   config.SecurityConfig
	Logger     *logging.Logger
	Registry   *socket.Registry
	Dispatcher *dispatch.Dispatcher
	Users      *auth.Users
	Audit      audit.Repository // optional: GET /audit answers 500 without it
	Metrics    *metrics.Metrics // optional: /metrics is not mounted without it
	Hub        *Hub             // optional: created on Start when nil
	Version    string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	secCfg     config.SecurityConfig
	logger     *logging.Logger
	registry   *socket.Registry
	dispatcher *dispatch.Dispatcher
	users      *auth.Users
	auditRepo  audit.Repository
	metrics    *metrics.Metrics
	version    string
	server     *http.Server
	hub        *Hub
	cancel     context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("socket registry is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("users are required")
	}
	if deps.Security.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	return &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		secCfg:     deps.Security,
		logger:     deps.Logger,
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		users:      deps.Users,
		auditRepo:  deps.Audit,
		metrics:    deps.Metrics,
		version:    deps.Version,
		hub:        deps.Hub,
	}, nil
}

// Hub returns the WebSocket hub, creating it if necessary. The hub is an
// events.Sink; register it on the bus to relay events to clients.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.logger)
	}
	return s.hub
}

// Handler returns the fully wired router without starting a listener.
func (s *Server) Handler() http.Handler {
	s.Hub()
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.Hub().Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

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

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
