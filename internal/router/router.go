package router

import (
	"time"

	"github.com/blues/qfround/internal/handler"
	"github.com/blues/qfround/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers 路由依赖的接口处理器
type Handlers struct {
	System   *handler.SystemHandler
	Round    *handler.RoundHandler
	Registry *handler.RegistryHandler
}

func Setup(h Handlers) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(requestLogger(logger.GetDefaultZapLogger().Named("http")))
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/health", h.System.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API版本组
	v1 := r.Group("/api/v1")
	{
		v1.GET("/login-message", h.System.LoginMessage)

		rounds := v1.Group("/rounds")
		{
			rounds.GET("/current", h.Round.GetCurrentRound)
			rounds.GET("/:address", h.Round.GetRound)
			rounds.GET("/:address/snapshots", h.Round.GetRoundSnapshots)
		}

		registries := v1.Group("/registries")
		{
			registries.GET("/:address/projects", h.Registry.ListProjects)
			registries.GET("/:address/projects/:id", h.Registry.GetProject)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// requestLogger 使用 zap 记录请求日志
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			log.Error(c.Errors.String(), fields...)
			return
		}
		if c.Writer.Status() >= 500 {
			log.Warn("request failed", fields...)
			return
		}
		log.Info("request", fields...)
	}
}
