// Package server sets up the HTTP server with all routes
package server

import (
	"compress/gzip"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/streamswap/engine/internal/auth"
	"github.com/streamswap/engine/internal/config"
	"github.com/streamswap/engine/internal/health"
	"github.com/streamswap/engine/internal/ledger"
	"github.com/streamswap/engine/internal/logging"
	"github.com/streamswap/engine/internal/metrics"
	"github.com/streamswap/engine/internal/position"
	"github.com/streamswap/engine/internal/ratelimit"
	"github.com/streamswap/engine/internal/realtime"
	"github.com/streamswap/engine/internal/reconciliation"
	"github.com/streamswap/engine/internal/registry"
	"github.com/streamswap/engine/internal/security"
	"github.com/streamswap/engine/internal/stream"
	"github.com/streamswap/engine/internal/traces"
	"github.com/streamswap/engine/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg *config.Config

	registryService *registry.Service
	registryHandler *registry.Handler
	streamService   *stream.Service
	streamHandler   *stream.Handler
	streamTimer     *stream.Timer
	positionStore   position.Store
	ledgerService   *ledger.Ledger
	reconRunner     *reconciliation.Runner
	reconTimer      *reconciliation.Timer
	authMgr         *auth.Manager
	authHandler     *auth.Handler
	realtimeHub     *realtime.Hub
	healthRegistry  *health.Registry

	rateLimiter *ratelimit.Limiter
	db          *sql.DB // nil if using in-memory
	router      *gin.Engine
	httpSrv     *http.Server
	logger      *slog.Logger

	cancelRunCtx   context.CancelFunc // cancels background goroutines started in Run
	tracerShutdown func(context.Context) error

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	tracerShutdown, err := traces.Init(ctx, cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
		tracerShutdown = func(context.Context) error { return nil }
	}
	s.tracerShutdown = tracerShutdown

	var (
		registryStore registry.Store
		streamStore   stream.Store
		positionStore position.Store
		ledgerStore   ledger.Store
		authStore     auth.Store
	)

	if cfg.DatabaseURL != "" {
		dbDSN := appendDSNParams(cfg.DatabaseURL, cfg.DBConnectTimeout, cfg.DBStatementTimeout)
		db, err := sql.Open("postgres", dbDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
		db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		registryStore = registry.NewPostgresStore(db)
		streamStore = stream.NewPostgresStore(db)
		positionStore = position.NewPostgresStore(db)
		ledgerStore = ledger.NewPostgresStore(db)

		authPG := auth.NewPostgresStore(db)
		if err := authPG.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate auth store", "error", err)
		}
		authStore = authPG
	} else {
		s.logger.Info("using in-memory storage")

		initialParams := registry.Params{
			RegistryAdmin:                cfg.RegistryAdmin,
			FeeCollector:                 cfg.FeeCollectorAddr,
			StreamCreationFeeDenom:       cfg.StreamCreationFeeDenom,
			StreamCreationFeeAmount:      cfg.StreamCreationFeeAmount,
			ExitFeePercentBPS:            cfg.ExitFeePercentBPS,
			AcceptedInDenoms:             cfg.AcceptedInDenoms,
			MinWaitingDurationSecs:       cfg.MinWaitingDurationSecs,
			MinBootstrappingDurationSecs: cfg.MinBootstrappingDurationSecs,
			MinStreamDurationSecs:        cfg.MinStreamDurationSecs,
			TosVersion:                   cfg.TosVersion,
		}

		registryStore = registry.NewMemoryStore(initialParams)
		streamStore = stream.NewMemoryStore()
		positionStore = position.NewMemoryStore()
		ledgerStore = ledger.NewMemoryStore()
		authStore = auth.NewMemoryStore()
	}

	s.positionStore = positionStore
	s.ledgerService = ledger.New(ledgerStore)

	s.streamService = stream.NewService(streamStore, positionStore, s.ledgerService, cfg.ExitFeePercentBPS).
		WithFeeCollector(cfg.FeeCollectorAddr)
	s.streamHandler = stream.NewHandler(s.streamService)
	s.streamTimer = stream.NewTimer(s.streamService, streamStore, s.logger)

	s.registryService = registry.NewService(registryStore, s.streamService, s.ledgerService)
	s.registryHandler = registry.NewHandler(s.registryService)

	s.reconRunner = reconciliation.NewRunner(streamStore)
	s.reconTimer = reconciliation.NewTimer(s.reconRunner, s.logger)

	s.authMgr = auth.NewManager(authStore)
	s.authHandler = auth.NewHandler(s.authMgr)

	s.realtimeHub = realtime.NewHub(s.logger)

	s.healthRegistry = health.NewRegistry()
	if s.db != nil {
		s.healthRegistry.Register("database", func(ctx context.Context) health.Status {
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := s.db.PingContext(ctx); err != nil {
				return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "database", Healthy: true}
		})
	}
	s.healthRegistry.Register("stream_timer", func(context.Context) health.Status {
		return health.Status{Name: "stream_timer", Healthy: true, Detail: timerStatus(s.streamTimer)}
	})
	s.healthRegistry.Register("reconciliation_timer", func(context.Context) health.Status {
		return health.Status{Name: "reconciliation_timer", Healthy: true, Detail: timerStatus(s.reconTimer)}
	})

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for demo - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Gzip compression (after CORS, before request size limit)
	s.router.Use(gzipMiddleware())

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	s.rateLimiter = ratelimit.New(ratelimit.Config{
		RequestsPerMinute: s.cfg.RateLimitRPM,
		BurstSize:         10,
		CleanupInterval:   time.Minute,
	})
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())

	// Request timeout (after logging so timeouts are logged)
	s.router.Use(s.timeoutMiddleware())

	// Auth: extracts API key and owner addr into context if present; does
	// not itself reject unauthenticated requests (see auth.RequireAuth).
	s.router.Use(auth.Middleware(s.authMgr))
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	s.router.GET("/", s.infoHandler)

	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	v1 := s.router.Group("/v1")
	v1.Use(cacheControl(5))

	s.registryHandler.RegisterRoutes(v1)
	s.streamHandler.RegisterRoutes(v1)

	protected := v1.Group("")
	protected.Use(auth.RequireAuth(s.authMgr))
	s.streamHandler.RegisterProtectedRoutes(protected)

	// CreateStream/UpdateParams/Freeze/Unfreeze all require an API key; the
	// latter three additionally check the caller's address against
	// Params.RegistryAdmin inside the service itself.
	registryProtected := v1.Group("")
	registryProtected.Use(auth.RequireAuth(s.authMgr))
	s.registryHandler.RegisterProtectedRoutes(registryProtected)

	v1.GET("/auth/info", s.authHandler.Info)

	keys := v1.Group("/keys")
	keys.Use(auth.RequireAuth(s.authMgr))
	keys.GET("", s.authHandler.ListKeys)
	keys.POST("", s.authHandler.CreateKey)
	keys.DELETE("/:keyId", s.authHandler.RevokeKey)
	keys.POST("/:keyId/regenerate", s.authHandler.RegenerateKey)
	keys.GET("/me", s.authHandler.GetCurrentOwner)
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "streamswap",
		"description": "Continuous-rate token stream sale engine",
		"version":     "0.1.0",
	})
}

// -----------------------------------------------------------------------------
// Health
// -----------------------------------------------------------------------------

type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	ok, statuses := s.healthRegistry.CheckAll(ctx)
	checks := make(map[string]string, len(statuses))
	for _, st := range statuses {
		if st.Healthy {
			checks[st.Name] = "healthy"
		} else {
			checks[st.Name] = "unhealthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !ok {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	ok, statuses := s.healthRegistry.CheckAll(ctx)
	checks := make(map[string]string, len(statuses))
	for _, st := range statuses {
		if st.Healthy {
			checks[st.Name] = "healthy"
		} else {
			checks[st.Name] = "unhealthy"
		}
	}

	status := "ready"
	httpStatus := http.StatusOK
	if !ok {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, gin.H{"status": status, "checks": checks})
}

type runnable interface{ Running() bool }

func timerStatus(t interface{}) string {
	if t == nil {
		return "not_configured"
	}
	if tr, ok := t.(runnable); ok {
		if tr.Running() {
			return "running"
		}
		return "stopped"
	}
	return "unknown"
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       s.cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.HTTPWriteTimeout,
		IdleTimeout:       s.cfg.HTTPIdleTimeout,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go s.realtimeHub.Run(runCtx)
	go s.streamTimer.Start(runCtx)
	go s.reconTimer.Start(runCtx)

	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	if s.streamTimer != nil {
		s.streamTimer.Stop()
		s.logger.Info("stream timer stopped")
	}

	if s.reconTimer != nil {
		s.reconTimer.Stop()
		s.logger.Info("reconciliation timer stopped")
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	if s.tracerShutdown != nil {
		if err := s.tracerShutdown(ctx); err != nil {
			s.logger.Error("tracer shutdown error", "error", err)
		} else {
			s.logger.Info("tracer shutdown complete")
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// appendDSNParams adds connect_timeout and statement_timeout to a PostgreSQL DSN.
func appendDSNParams(dsn string, connectTimeout, statementTimeout int) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return fmt.Sprintf("%s%sconnect_timeout=%d&statement_timeout=%d", dsn, sep, connectTimeout, statementTimeout)
	}
	return fmt.Sprintf("%s connect_timeout=%d statement_timeout=%d", dsn, connectTimeout, statementTimeout)
}

func (s *Server) timeoutMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Upgrade") == "websocket" {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

type gzipWriter struct {
	gin.ResponseWriter
	writer *gzip.Writer
}

func (w *gzipWriter) Write(data []byte) (int, error) {
	return w.writer.Write(data)
}

func (w *gzipWriter) WriteString(s string) (int, error) {
	return w.writer.Write([]byte(s))
}

func gzipMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") || c.GetHeader("Upgrade") == "websocket" {
			c.Next()
			return
		}
		gz, err := gzip.NewWriterLevel(c.Writer, gzip.DefaultCompression)
		if err != nil {
			c.Next()
			return
		}
		c.Header("Content-Encoding", "gzip")
		c.Header("Vary", "Accept-Encoding")
		c.Writer = &gzipWriter{ResponseWriter: c.Writer, writer: gz}
		defer func() {
			if err := gz.Close(); err != nil {
				_ = c.Error(err)
			}
			c.Header("Content-Length", "")
		}()
		c.Next()
	}
}

func cacheControl(maxAge int) gin.HandlerFunc {
	value := fmt.Sprintf("public, max-age=%d", maxAge)
	return func(c *gin.Context) {
		c.Header("Cache-Control", value)
		c.Next()
	}
}

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
