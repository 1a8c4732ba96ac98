// Package server assembles the HTTP surface: middleware chain, route
// registration, and listen-address handling.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-hub/internal/notify"
	"resume-hub/internal/resumes"
	"resume-hub/internal/shared/config"
	"resume-hub/internal/shared/metrics"
	"resume-hub/internal/shared/server/middleware"
	"resume-hub/internal/usage"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config         config.Config
	ResumesHandler *resumes.Handler
	UsageHandler   *usage.Handler
	Events         *notify.WSHandler
}

// NewRouter builds the gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	limiter := middleware.NewRateLimiter(time.Now)
	submitRule := middleware.RateLimitRule{Rate: 0.5, Burst: 10}

	v1 := r.Group("/v1")
	v1.Use(middleware.Owner())

	resumesGroup := v1.Group("/resumes")
	resumesGroup.Use(middleware.RateLimit(limiter, submitRule))
	deps.ResumesHandler.Register(resumesGroup)

	v1.GET("/usage", deps.UsageHandler.Get)
	v1.GET("/events", deps.Events.Serve)

	return r
}

// Addr returns a normalized listen address for the given port.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
