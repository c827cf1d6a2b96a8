// Package httpapi exposes the batch trigger and the client flows over HTTP.
package httpapi

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/ykvlv/deadman/internal/account"
	"github.com/ykvlv/deadman/internal/metrics"
	"github.com/ykvlv/deadman/internal/watchdog"
)

// Runner executes one batch under the run lock.
type Runner interface {
	RunOnce(ctx context.Context) (watchdog.Report, error)
}

type handlers struct {
	accounts *account.Service
	runner   Runner
	log      *zap.Logger
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(accounts *account.Service, runner Runner, serviceName string, log *zap.Logger) *gin.Engine {
	h := &handlers{accounts: accounts, runner: runner, log: log}

	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName), requestLogger(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/healthz", h.health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/v1")
	v1.POST("/runs", h.triggerRun)

	users := v1.Group("/users/:id")
	users.GET("/status", h.status)
	users.PATCH("/settings", h.updateSettings)
	users.POST("/checkins", h.checkIn)
	users.GET("/checkins", h.history)
	users.GET("/contacts", h.listContacts)
	users.POST("/contacts", h.addContact)
	users.DELETE("/contacts/:contactId", h.deleteContact)
	users.GET("/alerts", h.alerts)

	return router
}

// requestLogger logs one line per request at debug, or warn for 5xx.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		}
		if c.Writer.Status() >= 500 {
			log.Warn("http request", fields...)
			return
		}
		log.Debug("http request", fields...)
	}
}
