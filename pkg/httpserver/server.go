// Package httpserver exposes the dashboard API: venue previews, task
// control, trade history and live log streaming, plus the operational
// endpoints for metrics and health checks.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mkarpov/opinion-mm/internal/storage"
	"github.com/mkarpov/opinion-mm/internal/task"
	"github.com/mkarpov/opinion-mm/internal/venue"
	"github.com/mkarpov/opinion-mm/pkg/healthprobe"
)

// GatewayFactory builds a venue gateway for ad-hoc API calls. A
// non-empty tokenOverride replaces the shared auth token for that
// gateway only.
type GatewayFactory func(tokenOverride string) (venue.Gateway, error)

// LaunchFunc turns a created task into its runnable strategy. It fails
// when the task type is unknown, the config is invalid, or credentials
// are missing.
type LaunchFunc func(snap *task.Snapshot) (task.StrategyFunc, error)

// BalanceFunc reports the latest collateral balance, false when no
// snapshot is available yet.
type BalanceFunc func() (float64, bool)

// Server provides the dashboard HTTP and WebSocket endpoints.
type Server struct {
	server     *http.Server
	logger     *zap.Logger
	sup        *task.Supervisor
	store      storage.Storage
	creds      *venue.CredentialStore
	newGateway GatewayFactory
	launch     LaunchFunc
	balance    BalanceFunc
	upgrader   websocket.Upgrader
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Supervisor    *task.Supervisor
	Storage       storage.Storage
	Credentials   *venue.CredentialStore
	NewGateway    GatewayFactory
	Launch        LaunchFunc
	Balance       BalanceFunc
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	s := &Server{
		logger:     cfg.Logger,
		sup:        cfg.Supervisor,
		store:      cfg.Storage,
		creds:      cfg.Credentials,
		newGateway: cfg.NewGateway,
		launch:     cfg.Launch,
		balance:    cfg.Balance,
		upgrader: websocket.Upgrader{
			// The dashboard is served from arbitrary local origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/status", s.handleStatus)
		r.Post("/settings/token", s.handleUpdateToken)
		r.Post("/preview", s.handlePreview)
		r.Post("/positions", s.handlePositions)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Post("/", s.handleCreateTask)
			r.Get("/{id}", s.handleGetTask)
			r.Post("/{id}/start", s.handleStartTask)
			r.Post("/{id}/stop", s.handleStopTask)
			r.Get("/{id}/logs", s.handleTaskLogs)
		})

		r.Get("/trades", s.handleTrades)
		r.Get("/trades/stats", s.handleTradeStats)
	})

	// No timeout middleware: log streams stay open indefinitely.
	r.Get("/ws/logs/{id}", s.handleLogStream)

	s.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
