package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	crmapp "github.com/hubcrm/backend/internal/application/crm"
	"github.com/hubcrm/backend/internal/domain/record"
	"github.com/hubcrm/backend/internal/infrastructure/auth"
	"github.com/hubcrm/backend/internal/infrastructure/cache"
	"github.com/hubcrm/backend/internal/infrastructure/config"
	"github.com/hubcrm/backend/internal/infrastructure/logger"
	"github.com/hubcrm/backend/internal/infrastructure/persistence"
	"github.com/hubcrm/backend/internal/infrastructure/recordapi"
	"github.com/hubcrm/backend/internal/infrastructure/storage"
	"github.com/hubcrm/backend/internal/infrastructure/telemetry"
	"github.com/hubcrm/backend/internal/interfaces/http/handler"
	"github.com/hubcrm/backend/internal/interfaces/http/middleware"
	"github.com/hubcrm/backend/internal/interfaces/http/router"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting CRM Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("backend", cfg.Backend.Mode),
		zap.String("version", version),
	)

	// OTEL logs: mirror zap output to the collector
	lp, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize OTEL logs", zap.Error(err))
	}
	defer func() {
		if err := lp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	log = lp.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	// Continuous profiling
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()

	// Tracing
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()
	if cfg.Profiling.Enabled && cfg.Profiling.SpanProfiles {
		tp.EnableSpanProfiles()
	}

	// Metrics
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Cache store: redis when enabled, otherwise process-local. The token
	// blacklist lives here as well.
	storeFactory := cache.NewStoreFactory(cache.WithLogger(log))
	var cacheStore cache.Store
	if cfg.Redis.Enabled {
		cacheStore, err = storeFactory.CreateStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
	} else {
		cacheStore = storeFactory.CreateInMemoryStore()
	}
	defer func() {
		if err := cacheStore.Close(); err != nil {
			log.Error("Error closing cache store", zap.Error(err))
		}
	}()

	// Record backend
	var (
		client record.Client
		db     *persistence.Database
	)
	switch cfg.Backend.Mode {
	case config.BackendRemote:
		client, err = recordapi.New(recordapi.Config{
			BaseURL:   cfg.Backend.BaseURL,
			ProjectID: cfg.Backend.ProjectID,
			PublicKey: cfg.Backend.PublicKey,
			Timeout:   cfg.Backend.Timeout,
		}, log)
		if err != nil {
			log.Fatal("Failed to create record API client", zap.Error(err))
		}
		log.Info("Using hosted record API", zap.String("base_url", cfg.Backend.BaseURL))
	default:
		db, err = openDatabase(cfg, log)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}()
		client = persistence.NewRecordStore(db.DB, persistence.CRMSchemas())
		log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))
	}

	// Spans and metrics sit below the cache so they measure real backend calls
	client, err = telemetry.NewInstrumentedClient(client, mp)
	if err != nil {
		log.Fatal("Failed to instrument record backend", zap.Error(err))
	}
	if cfg.Redis.Enabled {
		client = cache.NewCachedClient(client, cacheStore,
			cache.WithTTL(cfg.Redis.CacheTTL),
			cache.WithDependents(persistence.CRMSchemas().Dependents()),
			cache.WithClientLogger(log),
		)
	}

	// Application services
	serviceOpts := []crmapp.Option{}
	if photos := newPhotoStorage(cfg, log); photos != nil {
		serviceOpts = append(serviceOpts, crmapp.WithObjectStorage(photos))
	}
	services := crmapp.NewServices(client, serviceOpts...)

	// Setup Gin
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	// Middleware chain: request id first so every later log line and span carries it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(mp))
	engine.Use(middleware.ProfilingWithConfig(middleware.ProfilingConfig{
		Enabled:   profiler.IsEnabled(),
		SkipPaths: middleware.DefaultProfilingConfig().SkipPaths,
	}))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer limiter.Stop()
		engine.Use(middleware.RateLimit(limiter))
	}

	// Health check stays outside the authenticated API group
	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	engine.GET("/health", handler.NewHealthHandler(cfg.Backend.Mode, pinger).Check)

	// Routes
	var routerOpts []router.RouterOption
	var authRoutes *router.DomainGroup
	if cfg.Auth.Enabled {
		jwtService := auth.NewJWTService(cfg.JWT)
		blacklist := auth.NewStoreTokenBlacklist(cacheStore)

		jwtCfg := middleware.DefaultJWTConfig(jwtService)
		jwtCfg.TokenBlacklist = blacklist
		jwtCfg.Logger = log
		routerOpts = append(routerOpts, router.WithMiddleware(middleware.JWTAuthMiddlewareWithConfig(jwtCfg)))

		authHandler := handler.NewAuthHandler(auth.NewAuthenticator(cfg.Auth.Users), jwtService, blacklist, log)
		authRoutes = router.AuthGroup(authHandler)
		log.Info("API authentication enabled", zap.Int("users", len(cfg.Auth.Users)))
	} else {
		log.Warn("API authentication disabled")
	}

	r := router.NewRouter(engine, routerOpts...)
	for _, group := range router.CRMGroups(handler.NewCRMHandlers(services)) {
		r.Register(group)
	}
	if authRoutes != nil {
		r.Register(authRoutes)
	}
	r.Setup()

	for _, route := range engine.Routes() {
		log.Debug("Route registered", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// openDatabase connects the local record store. SQLite databases get their
// tables created on start; postgres schemas are owned by cmd/migrate.
func openDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		return nil, err
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbSystem := "postgresql"
		if cfg.Database.Driver == config.DriverSQLite {
			dbSystem = "sqlite"
		}
		tracingCfg := telemetry.DefaultDBTracingConfig()
		tracingCfg.Enabled = true
		tracingCfg.LogFullSQL = cfg.Telemetry.DBLogFullSQL
		tracingCfg.DBSystem = dbSystem
		if err := telemetry.NewDBTracingPlugin(tracingCfg, log).Register(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if cfg.Database.Driver == config.DriverSQLite {
		if err := persistence.CRMSchemas().CreateTables(context.Background(), db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// newPhotoStorage returns the contact photo store. Without S3 configured,
// development gets a stub that hands out fake URLs and other environments
// get none, which disables photo uploads.
func newPhotoStorage(cfg *config.Config, log *zap.Logger) crmapp.ObjectStorage {
	if !cfg.Storage.Enabled {
		if cfg.App.Env == "development" {
			log.Warn("Object storage disabled, using stub photo storage")
			return storage.NewStubObjectStorage()
		}
		log.Info("Object storage disabled, photo uploads unavailable")
		return nil
	}

	s3Storage, err := storage.NewS3ObjectStorage(&cfg.Storage,
		storage.WithLogger(log),
		storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
	)
	if err != nil {
		log.Fatal("Failed to create object storage", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3Storage.EnsureBucket(ctx); err != nil {
		log.Fatal("Failed to prepare photo bucket", zap.Error(err), zap.String("bucket", cfg.Storage.Bucket))
	}
	log.Info("Object storage ready", zap.String("bucket", cfg.Storage.Bucket))
	return s3Storage
}
