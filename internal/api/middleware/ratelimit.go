package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/metrics"
)

// IPRateLimiter keeps one token bucket per client IP. Idle buckets expire
// so the set of tracked clients stays bounded.
type IPRateLimiter struct {
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
	log      logrus.FieldLogger
}

func NewIPRateLimiter(rps float64, burst int, log logrus.FieldLogger) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](10000, nil, 10*time.Minute),
		rate:     rate.Limit(rps),
		burst:    burst,
		log:      log.WithField("component", "ratelimit"),
	}
}

func (l *IPRateLimiter) limiter(key string) *rate.Limiter {
	if lim, ok := l.limiters.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(l.rate, l.burst)
	l.limiters.Add(key, lim)
	return lim
}

func (l *IPRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.limiter(ip).Allow() {
			metrics.RateLimitedTotal.WithLabelValues(c.FullPath()).Inc()
			l.log.WithFields(logrus.Fields{"ip": ip, "path": c.FullPath()}).Warn("rate limit exceeded")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apperrors.Envelope{
				Code:    http.StatusTooManyRequests,
				Name:    apperrors.KindInput.Name(),
				Message: "too many requests, slow down",
			})
			return
		}
		c.Next()
	}
}
