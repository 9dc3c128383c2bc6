package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/crmapi/crm-service/internal/api/handler"
	"github.com/crmapi/crm-service/internal/api/middleware"
	"github.com/crmapi/crm-service/internal/core/domain"
	"github.com/crmapi/crm-service/internal/core/ports"
	infrahttp "github.com/crmapi/crm-service/internal/infrastructure/http"

	_ "github.com/crmapi/crm-service/docs"
)

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins      []string
	RegistrationEnabled bool
	SwaggerEnabled      bool
	// LoginLimiter throttles POST /auth/login; nil disables throttling.
	LoginLimiter middleware.RateLimiter
	// Health lists the dependencies checked by the readiness probe.
	Health map[string]ports.Pinger
	// Metrics registry; the Prometheus default registry when nil.
	Registry *prometheus.Registry
}

// Dependencies are the services the handlers call into.
type Dependencies struct {
	Auth      ports.AuthService
	Tokens    middleware.TokenValidator
	Customers ports.CustomerService
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies, opts Options, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)
	e.IPExtractor = echo.ExtractIPDirect()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: opts.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomiddleware.BodyLimit("1M"))
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if opts.Registry != nil {
		registerer, gatherer = opts.Registry, opts.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "crm",
		Registerer: registerer,
	}))
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	if opts.SwaggerEnabled {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}
	infrahttp.RegisterHealth(e, opts.Health)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	auth := e.Group("/auth")
	if opts.RegistrationEnabled {
		auth.POST("/register", authHandler.Register)
	}
	if opts.LoginLimiter != nil {
		auth.POST("/login", authHandler.Login, middleware.LoginRateLimit(opts.LoginLimiter, log))
	} else {
		auth.POST("/login", authHandler.Login)
	}

	// --- Customer routes ---
	customerHandler := handler.NewCustomerHandler(deps.Customers, log)
	readers := middleware.RBAC(domain.RoleUser, domain.RoleAdmin)
	writers := middleware.RBAC(domain.RoleAdmin)

	customers := e.Group("/customer", middleware.Auth(deps.Tokens))
	customers.GET("", customerHandler.List, readers)
	customers.GET("/filter", customerHandler.Filter, readers)
	customers.GET("/:id", customerHandler.Get, readers)
	customers.POST("", customerHandler.Create, writers)
	customers.PUT("/:id", customerHandler.Update, writers)
	customers.DELETE("/:id", customerHandler.Delete, writers)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
