package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yourname/inkjournal/internal"
	"github.com/yourname/inkjournal/internal/response"
	"golang.org/x/time/rate"
)

// RequestIDMiddleware ensures every request has a correlation/request ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set("request_id", reqID)
		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Next()
	}
}

func AccessLog(logger internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Infow("request",
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// SecurityHeaders sets the baseline browser hardening headers on every response.
// HSTS is only sent on requests that arrived over TLS.
func SecurityHeaders() gin.HandlerFunc {
	return secure.New(secure.Config{
		CustomFrameOptionsValue: "SAMEORIGIN",
		ContentTypeNosniff:      true,
		BrowserXssFilter:        true,
		ContentSecurityPolicy:   "default-src 'self'; frame-ancestors 'self'; object-src 'none'",
		ReferrerPolicy:          "no-referrer",
		STSSeconds:              15552000,
		STSIncludeSubdomains:    true,
		IENoOpen:                true,
		SSLProxyHeaders:         map[string]string{"X-Forwarded-Proto": "https"},
	})
}

// Recovery turns a panic into the generic 500 body.
func Recovery(logger internal.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Errorw("panic", "request_id", c.GetString("request_id"), "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Unexpected(""))
	})
}

// ipLimiter hands out one token bucket per client IP. The whole table is
// dropped every resetEvery so idle clients do not accumulate.
type ipLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
	limit      rate.Limit
	burst      int
	resetEvery time.Duration
	lastReset  time.Time
}

func newIPLimiter(requests int, window time.Duration) *ipLimiter {
	return &ipLimiter{
		limiters:   make(map[string]*rate.Limiter),
		limit:      rate.Every(window / time.Duration(requests)),
		burst:      requests,
		resetEvery: window,
		lastReset:  time.Now(),
	}
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastReset) > l.resetEvery {
		l.limiters = make(map[string]*rate.Limiter)
		l.lastReset = time.Now()
	}
	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = limiter
	}
	return limiter
}

// RateLimit allows roughly requests per window for each client IP.
func RateLimit(requests int, window time.Duration, logger internal.Logger) gin.HandlerFunc {
	limiter := newIPLimiter(requests, window)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.get(ip).Allow() {
			logger.Warnw("rate limit exceeded", "client_ip", ip, "request_id", c.GetString("request_id"))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.TooManyRequests())
			return
		}
		c.Next()
	}
}
