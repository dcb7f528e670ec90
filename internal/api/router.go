package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourname/inkjournal/internal/auth"
)

func NewRouter(app App) *gin.Engine {
	cfg := app.Config()
	logger := app.Logger()

	r := gin.New()
	r.Use(RequestIDMiddleware(), AccessLog(logger), Recovery(logger))
	r.Use(SecurityHeaders())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow, logger))

	r.GET("/health", GetHealth())
	r.GET("/health/openai", GetProviderHealth(app))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	insights := r.Group("/insights", auth.OptionalAuth(app.Auth()))
	insights.POST("/ai", PostInsightsAI(app))

	return r
}
