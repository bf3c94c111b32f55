package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/AppFeed/backend/internal/api/http"
	"github.com/GriffinCanCode/AppFeed/backend/internal/api/middleware"
	"github.com/GriffinCanCode/AppFeed/backend/internal/api/ws"
	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/apps"
	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/generator"
	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/profile"
	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/safety"
	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/seed"
	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AppFeed/backend/internal/sandbox"
	"github.com/GriffinCanCode/AppFeed/backend/internal/sandbox/runtime"
	"github.com/GriffinCanCode/AppFeed/backend/internal/store"
)

const seedTimeout = 30 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	handler  http.Handler
	store    store.Store
	pool     *runtime.Pool
	sandbox  *sandbox.Registry
	hub      *ws.Hub
	tracer   *tracing.Tracer
	metrics  *monitoring.Metrics
	logger   *logging.Logger
	config   *config.Config
	seedStat seed.Stats
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return NewServerWithLogger(cfg, logger)
}

// NewServerWithLogger creates a server that logs to logger
func NewServerWithLogger(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger.Info("Initializing AppFeed server",
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("generator", cfg.Generator.Provider),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("appfeed", logger.Logger)

	st, err := store.Open(cfg.Storage, logger.Named("store").Logger)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	preflight := runtime.DefaultConfig()
	if cfg.Sandbox.PreflightTimeout > 0 {
		preflight.Timeout = cfg.Sandbox.PreflightTimeout.Std()
	}
	pool, err := runtime.NewPool(preflight, cfg.Sandbox.PoolSize)
	if err != nil {
		st.Close()
		tracer.Close()
		return nil, fmt.Errorf("failed to create preflight pool: %w", err)
	}
	analyzer := safety.NewAnalyzer(pool, logger.Named("safety").Logger)

	hub := ws.NewHub(metrics, logger.Named("ws").Logger)

	feed := apps.NewManager(st, analyzer, apps.Config{
		DefaultPageSize:  cfg.Feed.DefaultPageSize,
		MaxPageSize:      cfg.Feed.MaxPageSize,
		PublishThreshold: cfg.Feed.PublishThreshold,
		CurrentUserID:    cfg.Feed.CurrentUserID,
	}, logger.Named("feed").Logger)
	feed.SetPublisher(hub)
	feed.SetRecorder(metrics)

	profiles := profile.NewManager(st, feed, logger.Named("profile").Logger)
	profiles.SetPublisher(hub)
	profiles.SetRecorder(metrics)

	gen, err := generator.New(cfg.Generator, logger.Named("generator").Logger)
	if err != nil {
		pool.Close()
		st.Close()
		tracer.Close()
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	genService := generator.NewService(gen, analyzer, logger.Named("generator").Logger)
	genService.SetRecorder(metrics)

	registry := sandbox.NewRegistry(sandbox.RegistryConfig{
		ReadyTimeout: cfg.Sandbox.ReadyTimeout.Std(),
		TTL:          cfg.Sandbox.SessionTTL.Std(),
		Recorder:     metrics,
	}, logger.Named("sandbox").Logger)

	s := &Server{
		store:   st,
		pool:    pool,
		sandbox: registry,
		hub:     hub,
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
		config:  cfg,
	}

	if err := s.seed(analyzer); err != nil {
		s.Close()
		return nil, err
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limits.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limits))
	}
	router.Use(middleware.Identity(cfg.Feed.CurrentUserID))

	handlers := apihttp.NewHandlers(apihttp.Deps{
		Apps:          feed,
		Profiles:      profiles,
		Generator:     genService,
		Sandbox:       registry,
		Metrics:       metrics,
		Tracer:        tracer,
		Logger:        logger.Named("http").Logger,
		PreviewOrigin: cfg.Sandbox.TargetOrigin,
	})
	handlers.Register(router)

	wsHandler := ws.NewHandler(hub, genService, registry, logger.Named("ws").Logger)
	router.GET("/stream", wsHandler.HandleConnection)

	s.router = router
	s.handler = compress(router)

	logger.Info("Server initialized successfully")
	return s, nil
}

// seed loads the built-in dataset and any manifests under the seed dir
func (s *Server) seed(analyzer seed.Analyzer) error {
	if !s.config.Seed.Enabled {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()

	loader := seed.NewLoader(s.store, analyzer, s.logger.Named("seed").Logger)
	stats, err := loader.LoadBuiltin(ctx)
	if err != nil {
		return fmt.Errorf("failed to load seed data: %w", err)
	}
	if dir := s.config.Seed.Dir; dir != "" {
		extra, err := loader.LoadDir(ctx, dir)
		if err != nil {
			return fmt.Errorf("failed to load seed dir %s: %w", dir, err)
		}
		stats.Add(extra)
	}
	s.seedStat = stats

	s.logger.Info("Seed data loaded",
		zap.Int("users", stats.Users),
		zap.Int("apps", stats.Apps),
		zap.Int("likes", stats.Likes),
		zap.Int("follows", stats.Follows),
		zap.Int("skipped", stats.Skipped),
	)
	return nil
}

// compress gzips responses except WebSocket upgrades, which must stay
// hijackable.
func compress(router http.Handler) http.Handler {
	gz := gzhttp.GzipHandler(router)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			router.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// SeedStats reports what the startup seed loaded
func (s *Server) SeedStats() seed.Stats {
	return s.seedStat
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sandbox.Run(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout.Std())
	defer cancel()

	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return <-errCh
}

// Close releases the server's resources
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	var errs []error
	s.hub.Close()
	if err := s.pool.Close(); err != nil {
		s.logger.Error("Failed to close preflight pool", zap.Error(err))
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close store", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	s.tracer.Close()

	_ = s.logger.Sync()
	return errors.Join(errs...)
}
