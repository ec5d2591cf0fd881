package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/odontogram-api/internal/config"
	"github.com/jwalitptl/odontogram-api/internal/dental"
	auditHandler "github.com/jwalitptl/odontogram-api/internal/handler/audit"
	catalogHandler "github.com/jwalitptl/odontogram-api/internal/handler/catalog"
	"github.com/jwalitptl/odontogram-api/internal/handler/health"
	odontogramHandler "github.com/jwalitptl/odontogram-api/internal/handler/odontogram"
	promHandler "github.com/jwalitptl/odontogram-api/internal/handler/prometheus"
	"github.com/jwalitptl/odontogram-api/internal/middleware"
	"github.com/jwalitptl/odontogram-api/internal/repository"
	"github.com/jwalitptl/odontogram-api/internal/repository/postgres"
	"github.com/jwalitptl/odontogram-api/internal/repository/supabase"
	"github.com/jwalitptl/odontogram-api/internal/router"
	"github.com/jwalitptl/odontogram-api/internal/service/audit"
	"github.com/jwalitptl/odontogram-api/internal/service/catalog"
	"github.com/jwalitptl/odontogram-api/internal/service/odontogram"
	"github.com/jwalitptl/odontogram-api/pkg/auth"
	"github.com/jwalitptl/odontogram-api/pkg/cache"
	"github.com/jwalitptl/odontogram-api/pkg/logger"
	"github.com/jwalitptl/odontogram-api/pkg/messaging"
	"github.com/jwalitptl/odontogram-api/pkg/messaging/redis"
	"github.com/jwalitptl/odontogram-api/pkg/metrics"
	"github.com/jwalitptl/odontogram-api/pkg/security"
)

// snapshotKeyPurpose separates the snapshot key from any other key derived
// from the same secret.
const snapshotKeyPurpose = "odontogram-snapshots"

func main() {
	cfg, err := config.LoadConfig(os.Getenv("ODONTO_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(cfg.Log.LoggerConfig())
	log.Logger = *appLogger.Zerolog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New("odontogram", registry)

	var encryptor security.Encryptor
	if cfg.Security.EncryptionKey != "" {
		encryptor, err = security.NewDerivedEncryptor(
			[]byte(cfg.Security.EncryptionKey),
			[]byte(cfg.Security.EncryptionSalt),
			snapshotKeyPurpose,
		)
		if err != nil {
			appLogger.Fatal(err, "failed to initialize snapshot encryption")
		}
	} else {
		appLogger.Warn(nil, "snapshot encryption disabled; set security.encryption_key to enable it")
	}

	// Initialize repositories
	baseRepo := postgres.NewBaseRepository(db)
	conditionRepo := postgres.NewConditionRepository(baseRepo)
	odontogramRepo := postgres.NewOdontogramRepository(baseRepo, encryptor)
	patientRepo := postgres.NewPatientRepository(baseRepo)
	auditRepo := postgres.NewAuditRepository(baseRepo)

	// Initialize broker
	checks := map[string]health.Pinger{}
	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		redisBroker, err := redis.NewRedisBroker(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			BreakerOpen:  cfg.Redis.BreakerOpen,
		}, appLogger)
		if err != nil {
			appLogger.Fatal(err, "failed to connect to Redis")
		}
		broker = redisBroker
		checks["redis"] = redisBroker
	} else {
		appLogger.Warn(nil, "redis not configured; catalog invalidations stay local to this instance")
		broker = messaging.NewMemoryBroker()
	}
	defer broker.Close()

	// Initialize services
	source, writableRepo, err := catalogSource(cfg.Catalog, conditionRepo)
	if err != nil {
		appLogger.Fatal(err, "failed to configure condition catalog")
	}

	cacheManager := cache.New(cache.Config{
		DefaultTTL:      cfg.Catalog.CacheTTL,
		CleanupInterval: cfg.Catalog.CleanupInterval,
		MaxEntries:      cfg.Catalog.MaxEntries,
	}, appMetrics)

	auditSvc := audit.NewService(auditRepo)
	catalogSvc := catalog.NewService(source, writableRepo, cacheManager, broker, auditSvc, catalog.Config{
		TTL:     cfg.Catalog.CacheTTL,
		Channel: cfg.Redis.Channel,
	}, appLogger)
	resolver := dental.NewResolver(catalogSvc, appLogger, appMetrics)
	odontogramSvc := odontogram.NewService(odontogramRepo, patientRepo, resolver, auditSvc, appLogger, appMetrics)

	go func() {
		if err := catalogSvc.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error(err, "catalog invalidation listener stopped")
		}
	}()

	tokens, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer)
	if err != nil {
		appLogger.Fatal(err, "failed to initialize token validation")
	}

	// Setup router
	r := router.NewRouter(
		router.RouterConfig{
			Mode:           cfg.Server.Mode,
			RequestTimeout: cfg.Server.RequestTimeout,
			MetricsPath:    cfg.Server.MetricsPath,
			RateLimit:      cfg.RateLimit,
		},
		middleware.NewAuthMiddleware(tokens),
		router.Handlers{
			Health:     health.NewHandler(db, checks),
			Audit:      auditHandler.NewHandler(auditSvc),
			Catalog:    catalogHandler.NewHandler(catalogSvc),
			Odontogram: odontogramHandler.NewHandler(odontogramSvc, catalogSvc),
		},
		promHandler.New(registry, "odontogram"),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port, "catalog_source", cfg.Catalog.Source)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err, "failed to start server")
		}
	}()

	<-ctx.Done()
	appLogger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "server forced to shutdown")
	}

	appLogger.Info("server exited properly")
}

// catalogSource picks where condition priorities come from. Only the postgres
// source is writable through the API.
func catalogSource(cfg config.CatalogConfig, repo repository.ConditionRepository) (dental.CatalogSource, repository.ConditionRepository, error) {
	switch cfg.Source {
	case config.CatalogSourceStatic:
		return dental.StaticSource(dental.DefaultConditions()), nil, nil
	case config.CatalogSourcePostgres:
		return catalog.RepositorySource{Repo: repo}, repo, nil
	case config.CatalogSourceSupabase:
		return supabase.NewCatalogSource(cfg.Supabase), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}
