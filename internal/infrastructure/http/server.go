package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	handlers "github.com/wekeepgrowing/restoration-backend/internal/adapter/handler/http"
	"github.com/wekeepgrowing/restoration-backend/internal/config"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/metrics"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/ratelimit"
	"github.com/wekeepgrowing/restoration-backend/internal/middleware/auth"
	"github.com/wekeepgrowing/restoration-backend/pkg/logger"
)

// Handlers groups the HTTP handlers mounted by the server.
type Handlers struct {
	Webhook     *handlers.WebhookHandler
	Checkout    *handlers.CheckoutHandler
	Restoration *handlers.RestorationHandler
	Quota       *handlers.QuotaHandler
	Credit      *handlers.CreditHandler
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	handlers Handlers
	limiter  ratelimit.Limiter
	metrics  *metrics.Metrics

	checkNames []string
	checks     map[string]HealthCheck
}

// NewServer builds the echo server and its routes. limiter may be nil.
func NewServer(cfg *config.Config, logger *zap.Logger, h Handlers, limiter ratelimit.Limiter, m *metrics.Metrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()

	s := &Server{
		config:   cfg,
		logger:   logger,
		echo:     e,
		handlers: h,
		limiter:  limiter,
		metrics:  m,
		checks:   map[string]HealthCheck{},
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	e := s.echo
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return gonanoid.Must() },
	}))
	e.Use(logger.NewEchoRequestLogger(s.logger))
	e.Use(middleware.Recover())

	origins := s.config.Server.HTTP.CORSOrigins
	if len(origins) == 0 && s.config.Service.ClientURL != "" {
		origins = []string{s.config.Service.ClientURL}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestID},
	}))
	if s.config.Server.HTTP.BodyLimit != "" {
		e.Use(middleware.BodyLimit(s.config.Server.HTTP.BodyLimit))
	}

	logger.WithEchoLogger(e, s.logger)
}

// AddHealthCheck registers a dependency probed by /health.
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	if _, ok := s.checks[name]; !ok {
		s.checkNames = append(s.checkNames, name)
	}
	s.checks[name] = check
}

func (s *Server) health(c echo.Context) error {
	status := http.StatusOK
	deps := make(map[string]string, len(s.checks))
	for _, name := range s.checkNames {
		if err := s.checks[name](c.Request().Context()); err != nil {
			s.logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	body := map[string]interface{}{
		"status":  "healthy",
		"service": s.config.Service.Name,
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}
	return c.JSON(status, body)
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.health)
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	// Webhook route (outside API versioning, authenticated by signature)
	s.echo.POST("/webhook", s.handlers.Webhook.HandleWebhook)

	v1Middleware := []echo.MiddlewareFunc{
		auth.OptionalJWT(auth.JWTConfig{
			Secret: s.config.JWT.Secret,
			Issuer: s.config.JWT.Issuer,
			Logger: s.logger,
		}),
	}
	if s.limiter != nil {
		v1Middleware = append(v1Middleware, ratelimit.Middleware(s.limiter, ratelimit.RealIPKey, s.logger, s.metrics))
	}
	v1 := s.echo.Group("/api/v1", v1Middleware...)

	v1.GET("/packs", s.handlers.Checkout.ListPacks)
	v1.POST("/checkout", s.handlers.Checkout.CreateCheckout)

	v1.POST("/restorations", s.handlers.Restoration.CreateRestoration)
	v1.GET("/restorations/:id", s.handlers.Restoration.GetRestoration)

	v1.GET("/quota", s.handlers.Quota.GetQuota)
	v1.GET("/credits", s.handlers.Credit.GetCredits)
}
