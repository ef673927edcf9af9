package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-toon/internal/audit"
	"github.com/nerrad567/gray-logic-toon/internal/devices"
	"github.com/nerrad567/gray-logic-toon/internal/discovery"
	"github.com/nerrad567/gray-logic-toon/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-toon/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-toon/internal/toon"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Bridge is the part of the Toon bridge the API exposes.
type Bridge interface {
	toon.AccountConnector
	Status() toon.ConnectionStatus
	Phase() toon.Phase
	Authorized() bool
	Metrics() toon.BridgeMetrics
	RequestRefresh()
}

// DeviceRegistry is the set of configured child devices.
type DeviceRegistry interface {
	Devices() []devices.Device
	Device(id string) (devices.Device, bool)
	RemoveDevice(id string) error
}

// Scanner runs discovery scans.
type Scanner interface {
	Scan(ctx context.Context) (*discovery.Message, error)
}

// HistoryStore reads and deletes channel history.
type HistoryStore interface {
	GetHistory(ctx context.Context, deviceID, channel string, limit int) ([]devices.HistoryEntry, error)
	DeleteDevice(ctx context.Context, deviceID string) error
}

// HealthChecker is implemented by infrastructure clients (MQTT, InfluxDB,
// SQLite).
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// DBStatser exposes connection pool statistics.
type DBStatser interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Logger    *logging.Logger
	Bridge    Bridge
	Devices   DeviceRegistry
	Discovery Scanner                  // optional
	History   HistoryStore             // optional
	Checks    map[string]HealthChecker // optional, keyed by component name
	Database  DBStatser                // optional
	Audit     audit.Repository         // optional
	Version   string
}

// Server is the HTTP API server.
//
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	bridge    Bridge
	devices   DeviceRegistry
	discovery Scanner
	history   HistoryStore
	checks    map[string]HealthChecker
	database  DBStatser
	audit     audit.Repository
	version   string
	startTime time.Time

	server   *http.Server
	listener net.Listener
}

// New creates a new API server with the given dependencies.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("device registry is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		bridge:    deps.Bridge,
		devices:   deps.Devices,
		discovery: deps.Discovery,
		history:   deps.History,
		checks:    deps.Checks,
		database:  deps.Database,
		audit:     deps.Audit,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Start binds the listener and serves in a background goroutine. Binding
// happens synchronously so a port conflict is returned here.
//
// Parameters:
//   - ctx: Base context for every request
//
// Returns:
//   - error: If the listener cannot be bound
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("binding API listener on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	s.logger.Info("API server starting", "address", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

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
func (s *Server) Close() error {
	if s.server == nil {
		return nil
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
