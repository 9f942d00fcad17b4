package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jcanyelles/mosaic/internal/application"
	"github.com/jcanyelles/mosaic/internal/infrastructure/config"
	"github.com/jcanyelles/mosaic/internal/infrastructure/http/handler"
	"github.com/jcanyelles/mosaic/internal/infrastructure/http/middleware"
	"github.com/jcanyelles/mosaic/internal/infrastructure/jwt"
	"github.com/jcanyelles/mosaic/internal/infrastructure/ratelimit"
	"github.com/jcanyelles/mosaic/internal/infrastructure/redis"
	"github.com/jcanyelles/mosaic/internal/infrastructure/tracing"
)

// Server is the HTTP transport adapter: it owns the gin engine, the process
// registry and the gateway exposing it, and the ambient middleware chain.
type Server struct {
	router      *gin.Engine
	config      *config.Config
	httpServer  *http.Server
	startTime   time.Time
	registry    *application.Registry
	gateway     *application.Gateway
	providers   map[string]application.Provider
	jwtService  *jwt.Service
	adminAuth   *middleware.AdminAuth
	redisClient *redis.Client
	rateLimiter ratelimit.RateLimiter
	exporter    tracing.SpanExporter
}

// NewServer wires the registry, loads every provided service in order and
// builds the gin engine. Providers must be listed after their dependencies.
func NewServer(cfg *config.Config, set application.ProviderSet) (*Server, error) {
	registry := application.NewRegistry()

	var providers []application.Provider
	if set != nil {
		providers = set(registry)
	}

	providerMap := make(map[string]application.Provider, len(providers))
	bootCtx := context.Background()
	for _, provider := range providers {
		desc := provider()
		if _, err := registry.Load(bootCtx, desc); err != nil {
			return nil, fmt.Errorf("failed to load service %q: %w", desc.Name, err)
		}
		providerMap[desc.Name] = provider
	}

	gateway := application.NewGateway(
		registry,
		cfg.GatewayKey,
		application.PathParamSelector("service"),
		application.WithBasePath(cfg.GatewayBasePath),
	)
	if len(cfg.GatewayServices) > 0 {
		gateway.Access(cfg.GatewayServices...)
	} else {
		gateway.Access(registry.Services()...)
	}

	var jwtService *jwt.Service
	var adminAuth *middleware.AdminAuth
	if cfg.AdminJWTPublicKey != "" || cfg.AdminJWTPrivateKey != "" {
		var err error
		jwtService, err = jwt.NewService(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create JWT service: %w", err)
		}
		adminAuth = middleware.NewAdminAuth(jwtService)
		slog.Info("admin authentication enabled")
	} else {
		slog.Warn("admin JWT keys not configured, admin endpoints are unauthenticated")
	}

	var redisClient *redis.Client
	var rateLimiter ratelimit.RateLimiter
	if cfg.RateLimitEnabled {
		if cfg.RedisURL != "" {
			var err error
			redisClient, err = redis.NewClient(cfg.RedisURL)
			if err != nil {
				return nil, fmt.Errorf("failed to create redis client: %w", err)
			}
			rateLimiter = ratelimit.NewLimiter(redisClient.Client)
			slog.Info("rate limiting enabled with Redis")
		} else {
			rateLimiter = ratelimit.NewMemoryLimiter()
			slog.Warn("rate limiting enabled with in-memory limiter (not recommended for production)")
		}
	} else {
		slog.Debug("rate limiting disabled")
	}

	s := &Server{
		config:      cfg,
		startTime:   time.Now(),
		registry:    registry,
		gateway:     gateway,
		providers:   providerMap,
		jwtService:  jwtService,
		adminAuth:   adminAuth,
		redisClient: redisClient,
		rateLimiter: rateLimiter,
		exporter:    tracing.NewExporter(cfg),
	}
	s.setupRouter()
	return s, nil
}

// Registry exposes the process registry, mainly for tests and embedding.
func (s *Server) Registry() *application.Registry {
	return s.registry
}

func (s *Server) setupRouter() {
	if s.config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	s.router = gin.New()
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.Trace(middleware.NewW3CTraceProvider(), s.exporter))
	s.router.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: s.config.CORSAllowedOrigins,
		AllowedMethods: s.config.CORSAllowedMethods,
		AllowedHeaders: s.config.CORSAllowedHeaders,
	}))

	s.router.GET("/health", handler.HealthHandler(s.startTime, s.config.Version, func() int {
		return len(s.registry.Services())
	}))
	s.router.GET("/ready", handler.ReadyHandler())

	s.setupAdminRoutes()
	s.setupGatewayRoutes()
}

func (s *Server) setupAdminRoutes() {
	adminHandler := handler.NewAdminHandler(s.registry, s.providers)

	admin := s.router.Group("/internal/registry")
	if s.adminAuth != nil {
		admin.Use(s.adminAuth.Authenticate())
	}
	{
		admin.GET("/services", adminHandler.ListServices)
		admin.PUT("/gateways/:key/access", adminHandler.SetAccess)
		admin.POST("/reload/:name", adminHandler.Reload)
	}
}

func (s *Server) setupGatewayRoutes() {
	gatewayHandler := handler.NewGatewayHandler(s.gateway, nil)

	surface := s.router.Group(s.config.GatewayBasePath)
	if s.rateLimiter != nil {
		surface.Use(middleware.RateLimit(s.rateLimiter, s.config.RateLimitIPRPM))
	}
	surface.Any("/:service", gatewayHandler.Handle)
	surface.Any("/:service/*rest", gatewayHandler.Handle)
}

func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			return err
		}
	}
	if err := s.exporter.Shutdown(ctx); err != nil {
		slog.Warn("trace exporter shutdown failed", "error", err)
	}
	return s.httpServer.Shutdown(ctx)
}
