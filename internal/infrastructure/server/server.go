package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/webide/backend/internal/api/http"
	"github.com/GriffinCanCode/webide/backend/internal/api/middleware"
	"github.com/GriffinCanCode/webide/backend/internal/api/ws"
	"github.com/GriffinCanCode/webide/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/webide/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webide/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webide/backend/internal/preview/dispatch"
	"github.com/GriffinCanCode/webide/backend/internal/preview/monitor"
	"github.com/GriffinCanCode/webide/backend/internal/preview/render"
	"github.com/GriffinCanCode/webide/backend/internal/preview/sandbox"
	"github.com/GriffinCanCode/webide/backend/internal/preview/sanitize"
)

// streamPath is served without compression so the upgrade can hijack the connection.
const streamPath = "/preview/stream"

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	pool       *sandbox.Pool
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger := logging.FromConfig(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("Initializing preview server",
		zap.String("port", cfg.Server.Port),
		zap.Int("timeout_ms", cfg.Preview.TimeoutMs),
		zap.Int("pool_size", cfg.Preview.PoolSize),
		zap.String("html_policy", cfg.Preview.HTMLPolicy),
	)

	policy, err := sanitize.ParsePolicy(cfg.Preview.HTMLPolicy)
	if err != nil {
		return nil, fmt.Errorf("invalid preview configuration: %w", err)
	}

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	sandboxCfg := sandbox.DefaultConfig()
	sandboxCfg.Timeout = cfg.Preview.Timeout()
	sandboxCfg.EnableDOM = cfg.Preview.EnableDOM

	execOpts := []sandbox.ExecutorOption{sandbox.WithLogger(logger.Component("sandbox"))}
	var pool *sandbox.Pool
	if cfg.Preview.PoolSize > 0 {
		pool, err = sandbox.NewPool(sandboxCfg, cfg.Preview.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to warm realm pool: %w", err)
		}
		execOpts = append(execOpts, sandbox.WithFactory(pool.Factory()))
		logger.Info("Realm pool warmed", zap.Int("size", cfg.Preview.PoolSize))
	}

	renderer := render.NewHTMLRenderer(policy, logger.Component("render"))
	styles := render.NewCSSPreviewer(logger.Component("render"))
	mon := monitor.New(
		monitor.WithMaxHistory(cfg.Preview.MaxHistory),
		monitor.WithRecentWindow(cfg.Preview.RecentWindow),
	)
	dispatcher := dispatch.New(
		sandbox.NewExecutor(sandboxCfg, execOpts...),
		renderer,
		styles,
		mon,
		dispatch.WithObserver(metrics),
		dispatch.WithLogger(logger.Component("dispatch")),
	)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger.Component("http")))
	router.Use(middleware.Logger(logger.Component("http")))
	router.Use(monitoring.Middleware(metrics))
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.CORS.AllowOrigins
	router.Use(middleware.CORS(corsCfg))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
			zap.Bool("global", cfg.RateLimit.Global),
		)
		router.Use(rateLimiter(cfg.RateLimit))
	}

	deps := apihttp.Deps{
		Dispatcher: dispatcher,
		Renderer:   renderer,
		Styles:     styles,
		Policy:     policy,
		Metrics:    metrics,
		Preview:    cfg.Preview,
		Logger:     logger.Component("api"),
	}
	if pool != nil {
		deps.Pool = pool
	}
	handlers := apihttp.NewHandlers(deps)
	wsHandler := ws.NewHandler(dispatcher,
		ws.Config{
			MaxMessageBytes: cfg.Preview.MaxSourceBytes * 2,
			ClampTimeoutMs:  cfg.Preview.ClampTimeoutMs,
		},
		ws.WithMetrics(metrics),
		ws.WithStats(func() any { return handlers.Snapshot() }),
		ws.WithLogger(logger.Component("ws")),
	)

	// Register routes
	handlers.Register(router)
	router.GET(streamPath, wsHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	s := &Server{
		router:     router,
		pool:       pool,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
	}
	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

// rateLimiter picks one shared bucket or a bucket per client IP.
func rateLimiter(cfg config.RateLimitConfig) gin.HandlerFunc {
	limits := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}
	if cfg.Global {
		return middleware.GlobalRateLimit(limits)
	}
	return middleware.RateLimit(limits)
}

// Handler returns the root handler, gzip-wrapped when enabled.
func (s *Server) Handler() http.Handler {
	if !s.config.Server.Gzip {
		return s.router
	}
	compressed := gzhttp.GzipHandler(s.router)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == streamPath {
			s.router.ServeHTTP(w, r)
			return
		}
		compressed.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to shut down http server: %w", err))
	}
	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close realm pool: %w", err))
		}
		s.logger.Info("Closed realm pool")
	}

	// Sync logger before exit
	_ = s.logger.Sync()

	return errors.Join(errs...)
}
