package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopify-tenant-sync/internal/application"
	"shopify-tenant-sync/internal/application/webhook_handlers"
	"shopify-tenant-sync/internal/auth"
	"shopify-tenant-sync/internal/config"
	apiinfra "shopify-tenant-sync/internal/infrastructure/api"
	"shopify-tenant-sync/internal/infrastructure/cache"
	"shopify-tenant-sync/internal/infrastructure/database"
	"shopify-tenant-sync/internal/infrastructure/metrics"
	"shopify-tenant-sync/internal/infrastructure/pubsub"
	"shopify-tenant-sync/internal/infrastructure/repository"
	shopifyinfra "shopify-tenant-sync/internal/infrastructure/shopify"
	"shopify-tenant-sync/internal/ports"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg(".env file not found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger = logger.Level(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Relational store
	db, err := database.Open(database.Config{Driver: cfg.DatabaseDriver, URL: cfg.DatabaseURL}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate database")
	}

	tenantRepo := repository.NewTenantRepository(db, logger)
	entityRepo := repository.NewEntityRepository(db, logger)
	ownerRepo := repository.NewOwnerRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	// Optional MongoDB webhook audit log
	var webhookLog ports.WebhookLogRepository
	if cfg.MongoURI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())

		mongoLog := repository.NewMongoWebhookLog(client.Database(cfg.MongoDatabase))
		if err := mongoLog.EnsureIndexes(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to create webhook log indexes")
		}
		webhookLog = mongoLog
		logger.Info().Str("database", cfg.MongoDatabase).Msg("Webhook audit log enabled")
	}

	// Coordination: Redis when configured, in-process otherwise
	var (
		locker ports.TenantLocker        = cache.NewMemoryLocker()
		states ports.OAuthStateStore     = cache.NewMemoryStateStore()
		claims ports.OAuthStateStore     = cache.NewMemoryStateStore()
		dedupe ports.WebhookDeduplicator = cache.NewMemoryDeduplicator()
	)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		locker = cache.NewRedisLocker(rdb, "shopsync:lock:")
		states = cache.NewRedisStateStore(rdb, "shopsync:oauth:")
		claims = cache.NewRedisStateStore(rdb, "shopsync:claim:")
		dedupe = cache.NewRedisDeduplicator(rdb, "shopsync:webhook:")
		logger.Info().Msg("Using Redis for locks, OAuth state and webhook dedupe")
	} else {
		logger.Warn().Msg("REDIS_URL not set, coordination is limited to this process")
	}

	// Token sealing
	var sealer ports.TokenSealer
	if cfg.TokenEncryptionKey != "" {
		key, err := shopifyinfra.LoadKeyFromBase64(cfg.TokenEncryptionKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid TOKEN_ENCRYPTION_KEY")
		}
		tm, err := shopifyinfra.NewTokenManager(key, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize token manager")
		}
		sealer = tm
	} else {
		logger.Warn().Msg("TOKEN_ENCRYPTION_KEY not set, access tokens are stored unencrypted")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	// Provider client
	provider := shopifyinfra.NewClient(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret, shopifyinfra.ClientOptions{
		APIVersion: cfg.ShopifyAPIVersion,
		Retries:    cfg.ShopifyRetries,
	}, logger)

	// Initialize application services
	sessions := application.NewSessionReconciler(tenantRepo, sealer, logger)
	entities := application.NewEntityService(tenantRepo, entityRepo, logger)
	syncService := application.NewSyncService(tenantRepo, entityRepo, provider, sessions, locker, appMetrics, application.SyncConfig{
		Concurrency: cfg.SyncConcurrency,
		LockTTL:     cfg.SyncLockTTL,
	}, logger)
	installService := application.NewInstallService(provider, states, claims, sessions, ownerRepo, application.InstallConfig{
		APIKey: cfg.ShopifyAPIKey,
		AppURL: cfg.AppURL,
		Scopes: cfg.ShopifyScopes,
	}, logger)

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize token issuer")
	}
	authenticator, err := auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize authenticator")
	}
	ownerService := application.NewOwnerService(ownerRepo, tenantRepo, claims, issuer, logger)
	analyticsService := application.NewAnalyticsService(analyticsRepo)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewOrderHandler(logger, entities))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewProductHandler(logger, entities))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewCustomerHandler(logger, entities))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(logger, sessions))

	webhookPubSub := pubsub.NewWebhookPubSub(logger)
	webhookService := application.NewWebhookService(
		shopifyinfra.NewWebhookVerifier(cfg.ShopifyAPISecret),
		webhookDispatcher,
		application.WebhookServiceOptions{
			Dedupe:    dedupe,
			Log:       webhookLog,
			Publisher: webhookPubSub,
			Observer:  appMetrics,
		},
		logger,
	)

	// Periodic sync
	scheduler := application.NewSyncScheduler(syncService, cfg.SyncInterval, logger)
	go func() {
		if cfg.SyncOnStart {
			if err := scheduler.RunOnce(ctx); err != nil {
				logger.Error().Err(err).Msg("Initial sync run failed")
			}
		}
		scheduler.RunForever(ctx)
	}()

	router := apiinfra.NewRouter(apiinfra.Deps{
		Sync:           syncService,
		Installer:      installService,
		Webhooks:       webhookService,
		Owners:         ownerService,
		Analytics:      analyticsService,
		Tenants:        tenantRepo,
		Events:         webhookPubSub,
		WebhookHistory: webhookLog,
		Authenticator:  authenticator,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("appUrl", cfg.AppURL).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
