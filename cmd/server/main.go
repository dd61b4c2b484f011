package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/furniro/storefront/internal/application/catalog"
	checkoutapp "github.com/furniro/storefront/internal/application/checkout"
	collectionapp "github.com/furniro/storefront/internal/application/collection"
	identityapp "github.com/furniro/storefront/internal/application/identity"
	"github.com/furniro/storefront/internal/domain/catalog"
	"github.com/furniro/storefront/internal/domain/collection"
	"github.com/furniro/storefront/internal/infrastructure/auth"
	"github.com/furniro/storefront/internal/infrastructure/cache"
	"github.com/furniro/storefront/internal/infrastructure/catalogfile"
	"github.com/furniro/storefront/internal/infrastructure/config"
	"github.com/furniro/storefront/internal/infrastructure/event"
	"github.com/furniro/storefront/internal/infrastructure/logger"
	"github.com/furniro/storefront/internal/infrastructure/metrics"
	"github.com/furniro/storefront/internal/infrastructure/persistence"
	"github.com/furniro/storefront/internal/infrastructure/sanity"
	"github.com/furniro/storefront/internal/infrastructure/telemetry"
	"github.com/furniro/storefront/internal/interfaces/http/handler"
	"github.com/furniro/storefront/internal/interfaces/http/middleware"
	"github.com/furniro/storefront/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 30 * time.Second
	meterName       = "github.com/furniro/storefront"

	authAttemptsPerMinute = 10
)

//	@title			Furniro Storefront API
//	@version		1.0
//	@description	Catalog, cart, wishlist and checkout for the Furniro furniture shop

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
		Env:        cfg.App.Env,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// OpenTelemetry logs bridge; the console logger is rebuilt to tee into it
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize OTEL logger provider", zap.Error(err))
	}
	if loggerProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(cfg.Telemetry.ServiceName, loggerProvider, logger.ParseLevel(cfg.Log.Level))
		if log, err = logger.New(logCfg, otelCore); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Furniro storefront",
		zap.String("port", cfg.App.Port),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("catalog_source", cfg.Catalog.Source),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	var meter metric.Meter
	if meterProvider.IsEnabled() {
		meter = meterProvider.Meter(meterName)
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Profiling.Enabled,
		ServerAddress:   cfg.Profiling.ServerAddress,
		ApplicationName: cfg.Profiling.ApplicationName,
		Tags:            map[string]string{"env": cfg.App.Env},
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Profiling.SpanProfiles {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Collection storage
	var db *persistence.Database
	var checks []handler.HealthCheck
	factoryOpts := []cache.StorageFactoryOption{
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.Storage.RedisFallback),
	}
	if cfg.Storage.Backend == "database" {
		db = openDatabase(cfg, log, meter)
		factoryOpts = append(factoryOpts, cache.WithDatabase(db.DB))
		checks = append(checks, handler.HealthCheck{
			Name:  "database",
			Check: db.Ping,
		})
	}
	storage, err := cache.NewStorageFactory(cfg.Storage, cfg.Redis, factoryOpts...).CreateStorage()
	if err != nil {
		log.Fatal("Failed to create collection storage", zap.Error(err))
	}
	checks = append(checks, handler.HealthCheck{
		Name: "storage",
		Check: func(ctx context.Context) error {
			_, _, err := storage.Get(ctx, "readiness")
			return err
		},
	})

	// Metrics reach both the OTLP pipeline and the scrape endpoint
	var recorders []metrics.StorefrontRecorder
	var storefrontMetrics *telemetry.StorefrontMetrics
	if meter != nil {
		if storefrontMetrics, err = telemetry.NewStorefrontMetrics(meter, log); err != nil {
			log.Fatal("Failed to initialize storefront metrics", zap.Error(err))
		}
		recorders = append(recorders, storefrontMetrics)
	}
	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.NewRecorder()
		recorders = append(recorders, recorder)
	}
	fanout := metrics.NewFanout(recorders...)

	// Events
	eventBus := event.NewInMemoryEventBus(log)
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)

	// Collection store
	cartPolicy, err := collection.ParseDuplicatePolicy(cfg.Collections.CartPolicy)
	if err != nil {
		log.Fatal("Invalid cart policy", zap.Error(err))
	}
	wishlistPolicy, err := collection.ParseDuplicatePolicy(cfg.Collections.WishlistPolicy)
	if err != nil {
		log.Fatal("Invalid wishlist policy", zap.Error(err))
	}
	codec := persistence.NewCollectionCodec()
	store := collectionapp.NewStore(storage, codec,
		collectionapp.WithPolicy(collection.Cart, cartPolicy),
		collectionapp.WithPolicy(collection.Wishlist, wishlistPolicy),
		collectionapp.WithPublisher(eventBus),
		collectionapp.WithMetrics(fanout),
		collectionapp.WithLogger(log),
	)

	// Catalog
	products := cache.NewCachedProductReader(newProductReader(cfg, log), cfg.Catalog.CacheTTL, cache.WithCatalogLogger(log))
	images := sanity.NewImageURLBuilder(cfg.Catalog.ImageBaseURL, cfg.Catalog.ProjectID, cfg.Catalog.Dataset)
	catalogService := catalogapp.NewService(products, store, images, log)
	checks = append(checks, handler.HealthCheck{
		Name: "catalog",
		Check: func(ctx context.Context) error {
			_, err := products.FindAll(ctx)
			return err
		},
	})

	checkoutService := checkoutapp.NewService(store, storage, codec,
		checkoutapp.WithPublisher(eventBus),
		checkoutapp.WithMetrics(fanout),
		checkoutapp.WithLogger(log),
	)

	// Identity
	accounts, err := auth.NewAccountStore(cfg.Auth.Accounts)
	if err != nil {
		log.Fatal("Invalid auth accounts", zap.Error(err))
	}
	blacklist := newTokenBlacklist(cfg, log)
	jwtService := auth.NewJWTService(cfg.JWT)
	identityService := identityapp.NewService(accounts, jwtService, blacklist, log)

	// Event stream
	eventStream := handler.NewEventStreamHandler(serializer,
		handler.WithSSELogger(log),
		handler.WithSSEHeartbeat(cfg.Event.SSEHeartbeat),
		handler.WithSSEMaxClients(cfg.Event.SSEMaxClients),
	)
	eventBus.Subscribe(eventStream, eventStream.EventTypes()...)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	if err := eventStream.Start(); err != nil {
		log.Fatal("Failed to start event stream", zap.Error(err))
	}

	metricsCtx, stopMetrics := context.WithCancel(ctx)
	if storefrontMetrics != nil {
		storefrontMetrics.StartPeriodicCollection(metricsCtx, eventStream, cfg.Telemetry.MetricsInterval)
	}
	if recorder != nil {
		if err := recorder.RegisterSubscriberGauge(eventStream.SubscriberCount); err != nil {
			log.Warn("Failed to register subscriber gauge", zap.Error(err))
		}
	}

	// Handlers
	shopHandler := handler.NewShopHandler(catalogService)
	collectionHandler := handler.NewCollectionHandler(store, catalogService)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, catalogService)
	authHandler := handler.NewAuthHandler(identityService)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, eventStream, checks...)

	if !cfg.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitBurst)
	defer rateLimiter.Stop()
	// Sign-in attempts per client IP, independent of the shopping limit
	authLimiter := middleware.NewRateLimiter(authAttemptsPerMinute, time.Minute, authAttemptsPerMinute/2)
	defer authLimiter.Stop()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log, "/health", "/ready", cfg.Metrics.Path))
	engine.Use(middleware.Device(middleware.DeviceConfig{
		CookieName: cfg.Cookie.DeviceName,
		Domain:     cfg.Cookie.Domain,
		Path:       cfg.Cookie.Path,
		Secure:     cfg.Cookie.Secure,
		SameSite:   middleware.ParseSameSite(cfg.Cookie.SameSite),
		Lifetime:   cfg.Cookie.DeviceLifetime,
	}))
	engine.Use(middleware.Secure(cfg.Cookie.Secure))
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimit(rateLimiter))
	}
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName:      cfg.Telemetry.ServiceName,
		Enabled:          tracerProvider.IsEnabled(),
		SkipPaths:        []string{"/health", "/ready", cfg.Metrics.Path},
		SkipPathPrefixes: []string{middleware.EventStreamPrefix},
	}))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		Recorder: recorder,
		Meter:    meter,
		Logger:   log,
	}))
	if profiler.IsEnabled() {
		engine.Use(middleware.Profiling())
	}

	systemHandler.RegisterRoutes(engine)
	if recorder != nil {
		engine.GET(cfg.Metrics.Path, gin.WrapH(recorder.Handler()))
	}

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Use(middleware.OptionalJWTAuth(identityService, log), middleware.SpanAttributes()).
		Register(
			shopHandler.Routes(),
			collectionHandler.CartRoutes(),
			collectionHandler.WishlistRoutes(),
			collectionHandler.MeRoutes(),
			checkoutHandler.Routes(),
			authHandler.Routes().Use(middleware.RateLimitByKey(authLimiter, (*gin.Context).ClientIP)),
			eventStream.Routes(),
		).
		Setup()

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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Streams hold their connections open; close them before draining the server
	eventStream.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	stopMetrics()
	if storefrontMetrics != nil {
		storefrontMetrics.Stop()
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Error stopping event bus", zap.Error(err))
	}
	if closer, ok := blacklist.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Warn("Error closing token blacklist", zap.Error(err))
		}
	}
	if err := storage.Close(); err != nil {
		log.Warn("Error closing collection storage", zap.Error(err))
	}
	if db != nil {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down logger provider", zap.Error(err))
	}
}

// openDatabase connects the collection_blobs database with zap-backed gorm
// logging and, when enabled, query tracing.
func openDatabase(cfg *config.Config, log *zap.Logger, meter metric.Meter) *persistence.Database {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
	)
	db, err := persistence.Open(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        db.System(),
		}, log)
		if meter != nil {
			in := telemetry.NewInstruments(meter)
			duration := in.Histogram("db_query_duration_seconds",
				"Duration of collection storage queries", "s", telemetry.DBDurationBuckets...)
			if err := in.Err(); err != nil {
				log.Warn("Failed to create query duration histogram", zap.Error(err))
			} else {
				plugin = plugin.WithDurationHistogram(duration)
			}
		}
		if err := plugin.RegisterOtelGorm(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}
	return db
}

// newProductReader returns the configured catalog source
func newProductReader(cfg *config.Config, log *zap.Logger) catalog.ProductReader {
	if cfg.Catalog.Source == "sanity" {
		client, err := sanity.NewClient(&sanity.Config{
			ProjectID:  cfg.Catalog.ProjectID,
			Dataset:    cfg.Catalog.Dataset,
			APIVersion: cfg.Catalog.APIVersion,
			UseCDN:     cfg.Catalog.UseCDN,
			Token:      cfg.Catalog.Token,
			Timeout:    cfg.Catalog.Timeout,
		}, sanity.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create catalog client", zap.Error(err))
		}
		log.Info("Using content store catalog",
			zap.String("project_id", cfg.Catalog.ProjectID),
			zap.String("dataset", cfg.Catalog.Dataset))
		return sanity.NewProductReader(client, log)
	}

	reader, err := catalogfile.Open(cfg.Catalog.SeedFile, log)
	if err != nil {
		log.Fatal("Failed to load catalog seed", zap.Error(err))
	}
	return reader
}

// newTokenBlacklist returns the revocation store for signed-out tokens
func newTokenBlacklist(cfg *config.Config, log *zap.Logger) auth.TokenBlacklist {
	if cfg.Auth.BlacklistBackend == "redis" {
		client, err := cache.NewRedisClient(context.Background(), cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect token blacklist to Redis", zap.Error(err))
		}
		return auth.NewRedisTokenBlacklist(client, cfg.Storage.KeyPrefix)
	}
	return auth.NewInMemoryTokenBlacklist()
}
