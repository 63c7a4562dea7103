package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	levyapp "github.com/marketlevy/backend/internal/application/levy"
	"github.com/marketlevy/backend/internal/domain/levy"
	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/marketlevy/backend/internal/infrastructure/auth"
	"github.com/marketlevy/backend/internal/infrastructure/cache"
	"github.com/marketlevy/backend/internal/infrastructure/config"
	"github.com/marketlevy/backend/internal/infrastructure/event"
	"github.com/marketlevy/backend/internal/infrastructure/logger"
	"github.com/marketlevy/backend/internal/infrastructure/migration"
	"github.com/marketlevy/backend/internal/infrastructure/persistence"
	"github.com/marketlevy/backend/internal/infrastructure/qrcode"
	"github.com/marketlevy/backend/internal/infrastructure/storage"
	"github.com/marketlevy/backend/internal/infrastructure/telemetry"
	"github.com/marketlevy/backend/internal/interfaces/http/handler"
	"github.com/marketlevy/backend/internal/interfaces/http/middleware"
	"github.com/marketlevy/backend/internal/interfaces/http/router"
	"github.com/marketlevy/backend/migrations"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/marketlevy/backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		Service:     cfg.App.Name,
		Environment: cfg.App.Env,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	log.Info("Starting levy backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
		zap.String("port", cfg.App.Port),
	)

	// Telemetry providers. Each one is a no-op when disabled.
	service := telemetry.Service{Name: cfg.Telemetry.ServiceName, Version: cfg.App.Version, Environment: cfg.App.Env}
	collector := telemetry.Collector{Endpoint: cfg.Telemetry.CollectorEndpoint, Insecure: cfg.Telemetry.Insecure}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		Enabled:       cfg.Telemetry.Enabled,
		Collector:     collector,
		SamplingRatio: cfg.Telemetry.SamplingRatio,
		Service:       service,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:        cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		Collector:      collector,
		ExportInterval: cfg.Telemetry.MetricsInterval,
		Service:        service,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:   cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		Collector: collector,
		Service:   service,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	if loggerProvider.IsEnabled() {
		log = loggerProvider.BridgeLogger(log, logger.ParseLevel(cfg.Telemetry.LogsMinLevel))
	}
	defer shutdownTelemetry(log, tracerProvider, meterProvider, loggerProvider)

	meter := meterProvider.Meter(instrumentationName)
	levyMetrics, err := telemetry.NewLevyMetrics(telemetry.LevyMetricsConfig{Meter: meter, Logger: log})
	if err != nil {
		log.Fatal("Failed to create levy metrics", zap.Error(err))
	}

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithSQLLog(log,
		logger.SQLLogConfigFor(cfg.Log.Level, cfg.Telemetry.DBSlowQueryThresh, cfg.Telemetry.DBLogFullSQL)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if err := telemetry.RegisterDBPoolMetrics(meter, db.PoolStats); err != nil {
		log.Warn("Failed to register database pool metrics", zap.Error(err))
	}
	log.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := applyMigrations(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Redis backs payment idempotency and token revocation when configured
	redisBackend, err := cache.Open(ctx, cfg.Redis, cache.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		_ = redisBackend.Close()
	}()
	idempotencyStore := redisBackend.IdempotencyStore()
	defer func() {
		_ = idempotencyStore.Close()
	}()

	checks := map[string]handler.Pinger{"database": db}
	var revocations auth.Revocations = auth.NewMemoryRevocations()
	if client := redisBackend.Client(); client != nil {
		revocations = auth.NewRedisRevocations(client, auth.DefaultRevocationPrefix)
		checks["redis"] = redisBackend
	}

	// Repositories
	setupRepo := persistence.NewGormLevySetupRepository(db.DB)
	transactionRepo := persistence.NewGormLevyTransactionRepository(db.DB)
	directory := persistence.NewGormMarketDirectory(db.DB)
	auditSink := persistence.NewGormAuditSink(db.DB)

	// Event bus: audit trail and business metrics are fed from domain events
	eventBus := event.NewInMemoryEventBus(log,
		event.WithAsyncDispatch(cfg.Event.Async),
		event.WithHandlerTimeout(cfg.Event.HandlerTimeout),
	)
	eventBus.Subscribe(levyapp.NewAuditHandler(auditSink, log))
	eventBus.Subscribe(levyapp.NewMetricsHandler(levyMetrics))
	log.Info("Event handlers registered", zap.Strings("event_types", eventBus.EventTypes()))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// QR rendering, with optional archiving to object storage
	var archive levyapp.QRArchive
	if cfg.Storage.Enabled {
		s3Archive, err := storage.NewS3QRArchive(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create QR archive", zap.Error(err))
		}
		if err := s3Archive.EnsureBucket(ctx); err != nil {
			log.Fatal("QR archive bucket unavailable", zap.Error(err))
		}
		archive = s3Archive
		log.Info("QR archive enabled", zap.String("bucket", s3Archive.Bucket()))
	}

	// Application services
	setupService := levyapp.NewSetupService(levyapp.SetupServiceConfig{
		SetupRepo:      setupRepo,
		EventPublisher: eventBus,
		Metrics:        levyMetrics,
		Logger:         log,
	})
	identityService := levyapp.NewTraderIdentityService(levyapp.TraderIdentityServiceConfig{
		Directory:       directory,
		SetupRepo:       setupRepo,
		TransactionRepo: transactionRepo,
		PaymentBaseURL:  cfg.Levy.PaymentBaseURL,
		Metrics:         levyMetrics,
		Logger:          log,
	})
	paymentService := levyapp.NewPaymentService(levyapp.PaymentServiceConfig{
		Directory:        directory,
		TransactionRepo:  transactionRepo,
		References:       levy.NewReferenceGenerator(cfg.Levy.ReferencePrefix, levy.CryptoIDSource{}),
		IdempotencyStore: idempotencyStore,
		IdempotencyConfig: &shared.IdempotencyConfig{
			Enabled: cfg.Levy.IdempotencyEnabled,
			TTL:     cfg.Levy.IdempotencyTTL,
		},
		EventPublisher: eventBus,
		Metrics:        levyMetrics,
		Logger:         log,
	})
	qrService := levyapp.NewQRCodeService(levyapp.QRCodeServiceConfig{
		Directory: directory,
		Encoder:   qrcode.NewEncoder(cfg.Levy.QRSize),
		Archive:   archive,
		Prefix:    cfg.Levy.ReferencePrefix,
		Logger:    log,
	})
	tinService := levyapp.NewTINService(levyapp.TINServiceConfig{
		Directory:   directory,
		Source:      levy.CryptoIDSource{},
		MaxAttempts: cfg.Levy.TINMaxAttempts,
		Logger:      log,
	})

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	// Order matters: request id first so every later log line and span carries it
	engine.Use(middleware.RequestID())
	engine.Use(logger.AccessLog(log, logger.WithQuietRoutes(probePaths...)))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName:   cfg.Telemetry.ServiceName,
		Enabled:       cfg.Telemetry.Enabled,
		UntracedPaths: probePaths,
	}))
	engine.Use(middleware.SpanAttributes())
	engine.Use(httpMetrics)

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	router.RegisterHealth(engine, handler.NewHealthHandler(cfg.App.Version, checks))

	authn := middleware.JWTAuth(middleware.JWTMiddlewareConfig{
		JWTService:  auth.NewJWTService(cfg.JWT),
		Revocations: revocations,
		Logger:      log,
	})

	stopLimiter := make(chan struct{})
	var extra []gin.HandlerFunc
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		go limiter.Run(stopLimiter)
		extra = append(extra, middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	routes := router.NewRouter(engine, router.WithAPIVersion("v1")).
		Mount(router.NewLevyGroup(router.LevyHandlers{
			Setups:      handler.NewLevySetupHandler(setupService),
			Collections: handler.NewCollectionHandler(identityService, paymentService, qrService, directory),
			Markets:     handler.NewMarketHandler(tinService, auditSink),
		}, authn, extra...)).
		Setup()
	for _, rt := range routes {
		log.Debug("Route registered", zap.Stringer("route", rt))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	close(stopLimiter)

	// Drain audit and metrics handlers before the database goes away
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func applyMigrations(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.NewFromFS(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared pool, so it is left open
	return m.Up()
}

var probePaths = []string{"/health/live", "/health/ready"}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func shutdownTelemetry(log *zap.Logger, providers ...shutdowner) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, p := range providers {
		if err := p.Shutdown(ctx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}
}
