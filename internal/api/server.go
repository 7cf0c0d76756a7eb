package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/inspire-bridge/internal/audit"
	"github.com/nerrad567/inspire-bridge/internal/auth"
	"github.com/nerrad567/inspire-bridge/internal/coordinator"
	"github.com/nerrad567/inspire-bridge/internal/device"
	"github.com/nerrad567/inspire-bridge/internal/infrastructure/config"
	"github.com/nerrad567/inspire-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/inspire-bridge/internal/service"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Coordinator is the slice of the polling coordinator the API serves
// reads from.
type Coordinator interface {
	Snapshot() device.Snapshot
	Status() coordinator.Status
	RequestRefresh()
	Subscribe(fn coordinator.Subscriber) func()
}

// Commands is the service layer's write surface. Satisfied by
// *service.Commands; an interface so handler tests can fake dispatch.
type Commands interface {
	SetTemperature(ctx context.Context, actor service.Actor, deviceID string, temperature float64) error
	SetMode(ctx context.Context, actor service.Actor, deviceID, mode string) error
	ScheduleStart(ctx context.Context, actor service.Actor, deviceID string, at time.Time) error
	CancelScheduledStart(ctx context.Context, actor service.Actor, deviceID string) error
	AdvanceProgram(ctx context.Context, actor service.Actor, deviceID string) error
	SyncTime(ctx context.Context, actor service.Actor, deviceID string) error
	SetProgramSchedule(ctx context.Context, actor service.Actor, deviceID string, program, day, period int, start string, temperature float64) error
	SetProgramType(ctx context.Context, actor service.Actor, deviceID, programType string) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Security    config.SecurityConfig
	Logger      *logging.Logger
	Coordinator Coordinator
	Commands    Commands
	Users       auth.UserRepository
	Audit       audit.Repository
	History     device.StateHistoryRepository
	Version     string
}

// Server is the HTTP API server for the Inspire bridge.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	coordinator Coordinator
	commands    Commands
	users       auth.UserRepository
	audit       audit.Repository
	history     device.StateHistoryRepository
	version     string

	server      *http.Server
	hub         *Hub
	tickets     *ticketStore
	unsubscribe func()
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Coordinator == nil {
		return nil, fmt.Errorf("coordinator is required")
	}
	if deps.Commands == nil {
		return nil, fmt.Errorf("command service is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Security.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	// Audit and History are optional; their endpoints return 503 when unset.

	return &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		secCfg:      deps.Security,
		logger:      deps.Logger,
		coordinator: deps.Coordinator,
		commands:    deps.Commands,
		users:       deps.Users,
		audit:       deps.Audit,
		history:     deps.History,
		version:     deps.Version,
		tickets:     newTicketStore(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, attaches to the
// coordinator's change feed for real-time WebSocket broadcast, and
// launches the HTTP listener in a background goroutine. The server can
// be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	// Periodic ticket cleanup to prevent memory leaks
	go s.cleanTicketsLoop(srvCtx)

	// Broadcast coordinator snapshots to WebSocket clients
	s.unsubscribe = s.coordinator.Subscribe(s.broadcastSnapshot)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
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

	if s.unsubscribe != nil {
		s.unsubscribe()
	}

	// Cancel background goroutines (hub, ticket cleanup)
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

// HealthCheck verifies the API server is running and responsive.
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
