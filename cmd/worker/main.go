package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/odontogram-api/internal/config"
	"github.com/jwalitptl/odontogram-api/internal/handler/health"
	promHandler "github.com/jwalitptl/odontogram-api/internal/handler/prometheus"
	"github.com/jwalitptl/odontogram-api/internal/middleware"
	"github.com/jwalitptl/odontogram-api/internal/repository/postgres"
	"github.com/jwalitptl/odontogram-api/pkg/logger"
	"github.com/jwalitptl/odontogram-api/pkg/messaging/redis"
	"github.com/jwalitptl/odontogram-api/pkg/metrics"
	"github.com/jwalitptl/odontogram-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("ODONTO_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	appLogger := logger.NewLogger(cfg.Log.LoggerConfig())
	log.Logger = *appLogger.Zerolog()
	workerLogger := appLogger.WithFields(map[string]interface{}{"worker_id": workerID()})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		workerLogger.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		BreakerOpen:  cfg.Redis.BreakerOpen,
	}, workerLogger)
	if err != nil {
		workerLogger.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	workerMetrics := metrics.New("odontogram_worker", registry)

	baseRepo := postgres.NewBaseRepository(db)

	processor, err := worker.NewOutboxProcessor(
		postgres.NewOutboxRepository(baseRepo),
		broker,
		worker.OutboxProcessorConfig{
			Channel:       cfg.Redis.Channel,
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
			Retention:     cfg.Outbox.Retention,
		},
		workerLogger,
		workerMetrics,
	)
	if err != nil {
		workerLogger.Fatal(err, "Failed to create outbox processor")
	}

	auditCleanup := worker.NewAuditCleanupWorker(
		postgres.NewAuditRepository(baseRepo),
		cfg.Audit.Retention,
		cfg.Audit.CleanupInterval,
		workerLogger,
	)

	srv := healthServer(cfg.Outbox.HealthPort, health.NewHandler(db, map[string]health.Pinger{"redis": broker}), promHandler.New(registry, "odontogram_worker"))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			workerLogger.Error(err, "Health check server failed")
			stop()
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		auditCleanup.Start(ctx)
	}()

	<-ctx.Done()
	workerLogger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		workerLogger.Error(err, "Health check server forced to shutdown")
	}
	wg.Wait()
}

func healthServer(port int, h *health.Handler, metricsHandler *promHandler.Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(middleware.Recovery(), metricsHandler.Middleware())
	h.RegisterRoutes(engine.Group(""))
	engine.GET("/metrics", metricsHandler.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// workerID combines hostname and start time so log lines from replicas can
// be told apart.
func workerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())
}
