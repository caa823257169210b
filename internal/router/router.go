package router

import (
	"net/http"

	"eigenda-sidecar/internal/config"
	"eigenda-sidecar/internal/handlers"
	"eigenda-sidecar/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// requestLogger access log through logrus
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.WithFields(logrus.Fields{
			"path":        c.Request.URL.Path,
			"method":      c.Request.Method,
			"status":      c.Writer.Status(),
			"remote_addr": c.ClientIP(),
			"request_id":  c.GetString(middleware.RequestIDKey),
		}).Debug("🌐 request served")
	}
}

// SetupRouter mounts the JSON-RPC endpoint on POST /, plus /health and
// /metrics.
func SetupRouter(cfg config.ServerConfig, rpcServer http.Handler, health *handlers.HealthHandler, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.WithError(err).Warn("⚠️ invalid server.trusted_proxies, forwarded headers ignored")
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), middleware.RequestID(), requestLogger(logger))

	if len(cfg.MetricsAllowedIPs) > 0 {
		logger.WithFields(logrus.Fields{
			"allowed_ips": cfg.MetricsAllowedIPs,
			"count":       len(cfg.MetricsAllowedIPs),
		}).Info("Metrics IP whitelist configured")
	}
	localhostOnly := middleware.NewLocalhostOnly(logger, cfg.MetricsAllowedIPs)

	// ============ Health Check ============
	r.GET("/health", health.Health)

	// ============ Prometheus Metrics ============
	r.GET("/metrics", localhostOnly.Restrict(), gin.WrapH(promhttp.Handler()))

	// ============ JSON-RPC ============
	rpcHandlers := []gin.HandlerFunc{}
	if cfg.JWTSecret != "" {
		rpcHandlers = append(rpcHandlers, middleware.NewAuthMiddleware(cfg.JWTSecret, logger).RequireAuth())
	} else {
		logger.Warn("⚠️ server.jwt_secret not set, JSON-RPC endpoint is unauthenticated")
	}
	rpcHandlers = append(rpcHandlers, gin.WrapH(rpcServer))
	r.POST("/", rpcHandlers...)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"message": "Endpoint not found",
			"path":    c.Request.URL.Path,
		})
	})

	return r
}
