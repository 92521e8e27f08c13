package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/wsl-terminal/internal/api/http"
	"github.com/GriffinCanCode/wsl-terminal/internal/api/middleware"
	"github.com/GriffinCanCode/wsl-terminal/internal/api/ws"
	"github.com/GriffinCanCode/wsl-terminal/internal/domain/control"
	"github.com/GriffinCanCode/wsl-terminal/internal/domain/terminal"
	"github.com/GriffinCanCode/wsl-terminal/internal/eventbus"
	"github.com/GriffinCanCode/wsl-terminal/internal/infrastructure/config"
	"github.com/GriffinCanCode/wsl-terminal/internal/infrastructure/logging"
	"github.com/GriffinCanCode/wsl-terminal/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/wsl-terminal/internal/infrastructure/tracing"
)

// Server wraps the UI gateway, the session manager and the control plane
type Server struct {
	router  *gin.Engine
	http    *http.Server
	manager *terminal.Manager
	control *control.Server
	bus     *eventbus.Bus
	tracer  *tracing.Tracer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Output:      cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return NewServerWithLogger(cfg, logger), nil
}

// NewServerWithLogger creates a server that logs to logger.
func NewServerWithLogger(cfg *config.Config, logger *logging.Logger) *Server {
	logger.Info("Initializing WSL Terminal",
		zap.String("addr", cfg.Server.Addr()),
		zap.Bool("control_enabled", cfg.Control.Enabled),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("wsl-terminal", logger.Logger)

	bus := eventbus.New().OnEvict(metrics.IncSubscribersEvicted)

	manager := terminal.NewManager(terminal.Options{
		DefaultShell: cfg.Terminal.Shell,
		BufferBytes:  cfg.Terminal.BufferBytes,
		Cols:         cfg.Terminal.Cols,
		Rows:         cfg.Terminal.Rows,
	}, bus, logger.Named("terminal")).WithMetrics(metrics)

	// A control plane that cannot bind leaves the UI usable; only agents lose access.
	var ctl *control.Server
	if cfg.Control.Enabled {
		ctl = control.NewServer(control.Options{
			Endpoint:     control.ResolveEndpoint(cfg.Control.Network, cfg.Control.Address),
			ReplyTimeout: cfg.Control.ReplyTimeout,
		}, bus, logger.Named("control")).WithMetrics(metrics).WithTracer(tracer)
		if err := ctl.Start(); err != nil {
			logger.Warn("Control plane unavailable", zap.Error(err))
		}
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	corsConfig := middleware.DefaultCORSConfig()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(corsConfig))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(manager, ctl, bus, metrics)
	handlers.Register(router)

	var replier ws.Replier
	if ctl != nil {
		replier = ctl
	}
	wsHandler := ws.NewHandler(manager, replier, bus, metrics, logger.Named("ws")).
		WithOriginCheck(corsConfig.AllowsOrigin)
	router.GET("/stream", wsHandler.HandleConnection)

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		http:    &http.Server{Addr: cfg.Server.Addr(), Handler: router, ReadHeaderTimeout: 10 * time.Second},
		manager: manager,
		control: ctl,
		bus:     bus,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}
}

// Handler returns the gateway's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Control returns the control-plane server, or nil when disabled
func (s *Server) Control() *control.Server {
	return s.control
}

// Manager returns the session manager
func (s *Server) Manager() *terminal.Manager {
	return s.manager
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve runs the HTTP server on an existing listener
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones, then
// releases everything else
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	err := s.http.Shutdown(ctx)
	if closeErr := s.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Close tears down the control plane, every session and the event bus
func (s *Server) Close() error {
	var errs []error

	if err := s.http.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close http server: %w", err))
	}
	if s.control != nil {
		if err := s.control.Close(); err != nil {
			s.logger.Error("Failed to close control plane", zap.Error(err))
			errs = append(errs, fmt.Errorf("failed to close control plane: %w", err))
		}
	}

	s.manager.Close()
	s.bus.Close()
	s.tracer.Close()
	s.metrics.Close()

	_ = s.logger.Sync()

	return errors.Join(errs...)
}
