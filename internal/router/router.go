package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/odontogram-api/internal/config"
	"github.com/jwalitptl/odontogram-api/internal/handler/prometheus"
	"github.com/jwalitptl/odontogram-api/internal/middleware"
	"github.com/jwalitptl/odontogram-api/pkg/auth"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// ProtectedHandler registers routes that check roles per endpoint.
type ProtectedHandler interface {
	RegisterRoutes(*gin.RouterGroup, *middleware.AuthMiddleware)
}

type Handlers struct {
	Health     Handler
	Audit      Handler
	Catalog    ProtectedHandler
	Odontogram ProtectedHandler
}

type RouterConfig struct {
	Mode           string
	RequestTimeout time.Duration
	MetricsPath    string
	MaxBodySize    int64
	RateLimit      config.RateLimitConfig
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	metrics  *prometheus.Handler
	config   RouterConfig
}

func NewRouter(cfg RouterConfig, authMiddleware *middleware.AuthMiddleware, handlers Handlers, metrics *prometheus.Handler) *Router {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = middleware.DefaultMaxBodySize
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     authMiddleware,
		handlers: handlers,
		metrics:  metrics,
		config:   cfg,
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		metrics.Middleware(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: cfg.RequestTimeout}),
		middleware.SizeLimit(cfg.MaxBodySize),
	)

	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	r.engine.GET(r.config.MetricsPath, r.metrics.Handler())

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	if r.handlers.Health != nil {
		r.handlers.Health.RegisterRoutes(api)
	}

	protected := api.Group("")
	protected.Use(
		r.auth.Authenticate(),
		middleware.AuditContext(),
	)

	if r.handlers.Catalog != nil {
		r.handlers.Catalog.RegisterRoutes(protected, r.auth)
	}
	if r.handlers.Odontogram != nil {
		r.handlers.Odontogram.RegisterRoutes(protected, r.auth)
	}
	if r.handlers.Audit != nil {
		admin := protected.Group("", r.auth.RequireRole(auth.RoleAdmin))
		r.handlers.Audit.RegisterRoutes(admin)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
