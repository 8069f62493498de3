package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tkellner/homelab-manager/internal/api/handlers"
	"github.com/tkellner/homelab-manager/internal/api/middleware"
	"github.com/tkellner/homelab-manager/internal/config"
	"github.com/tkellner/homelab-manager/internal/metrics"
)

// Server wires the HTTP surface together: router, handlers, middleware and
// instrumentation.
type Server struct {
	Router *gin.Engine

	config  *config.Config
	handler *handlers.Handler
	logger  *zap.Logger
}

// Store is everything the server needs from persistence: the handler surface
// plus user resolution for the auth middleware.
type Store interface {
	handlers.Store
	middleware.UserResolver
}

func NewServer(cfg *config.Config, store Store, logger *zap.Logger) *Server {
	gin.SetMode(cfg.Server.Mode)

	s := &Server{
		Router:  gin.New(),
		config:  cfg,
		handler: handlers.NewHandler(store, cfg, logger),
		logger:  logger,
	}
	s.setupRoutes(store)
	return s
}

func (s *Server) setupRoutes(store Store) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	s.Router.Use(middleware.RequestID())
	s.Router.Use(middleware.Logger(s.logger))
	s.Router.Use(gin.Recovery())
	s.Router.Use(middleware.Metrics(collector))
	s.Router.Use(middleware.RateLimit(s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst))

	s.Router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := s.Router.Group("/api/v1")
	v1.GET("/health", s.handler.Health)

	authGroup := v1.Group("/auth")
	{
		credentials := middleware.AuthRateLimit(s.config.RateLimit.AuthPerMinute, s.config.RateLimit.AuthBurst)
		authGroup.POST("/register", credentials, s.handler.Register)
		authGroup.POST("/login", credentials, s.handler.Login)
		// Logout never fails, but a presented token lets the request log
		// and audit trail name who signed out.
		authGroup.POST("/logout",
			middleware.OptionalAuth(s.config.JWT.Secret, store),
			s.handler.Logout)

		authGroup.GET("/me",
			middleware.AuthRequired(s.config.JWT.Secret, store, s.logger),
			s.handler.Me)
	}

	protected := v1.Group("")
	protected.Use(middleware.AuthRequired(s.config.JWT.Secret, store, s.logger))
	protected.Use(middleware.Audit(s.logger))
	{
		services := protected.Group("/services")
		{
			// /stats must register before /:id or gin routes it as an id.
			services.GET("/stats", s.handler.GetServiceStats)
			services.GET("", s.handler.ListServices)
			services.POST("", s.handler.CreateService)
			services.GET("/:id", s.handler.GetService)
			services.PUT("/:id", s.handler.UpdateService)
			services.DELETE("/:id", s.handler.DeleteService)
		}

		certs := protected.Group("/ssl-certificates")
		{
			certs.GET("/expiring", s.handler.ListExpiringCertificates)
			certs.GET("", s.handler.ListCertificates)
			certs.POST("", s.handler.CreateCertificate)
			certs.GET("/:id", s.handler.GetCertificate)
			certs.PUT("/:id", s.handler.UpdateCertificate)
			certs.DELETE("/:id", s.handler.DeleteCertificate)
		}

		vulns := protected.Group("/vulnerabilities")
		{
			vulns.GET("", s.handler.ListVulnerabilities)
			vulns.POST("", s.handler.CreateVulnerability)
			vulns.GET("/:id", s.handler.GetVulnerability)
			vulns.PUT("/:id", s.handler.UpdateVulnerability)
			vulns.DELETE("/:id", s.handler.DeleteVulnerability)
		}

		logs := protected.Group("/maintenance-logs")
		{
			// Logs are append-only; there is no PUT route.
			logs.GET("", s.handler.ListMaintenanceLogs)
			logs.POST("", s.handler.CreateMaintenanceLog)
			logs.GET("/:id", s.handler.GetMaintenanceLog)
			logs.DELETE("/:id", s.handler.DeleteMaintenanceLog)
		}
	}
}
