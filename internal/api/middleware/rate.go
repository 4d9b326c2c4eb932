package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig bounds how fast a client may call the studio.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	// IdleTTL is how long an idle client's bucket is kept.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns the studio's default limits. Prompt and
// style calls are cheap to send but slow to serve upstream.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 20,
		Burst:             40,
		IdleTTL:           10 * time.Minute,
	}
}

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// buckets hands out one token bucket per key and forgets idle keys.
type buckets struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu    sync.Mutex
	byKey map[string]*bucket
	swept time.Time
}

func newBuckets(cfg RateLimitConfig) *buckets {
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = DefaultRateLimitConfig().IdleTTL
	}
	return &buckets{
		limit: rate.Limit(cfg.RequestsPerSecond),
		burst: cfg.Burst,
		ttl:   ttl,
		byKey: make(map[string]*bucket),
	}
}

func (b *buckets) allow(key string, now time.Time) bool {
	b.mu.Lock()
	if now.Sub(b.swept) > b.ttl {
		b.sweep(now)
	}
	bk := b.byKey[key]
	if bk == nil {
		bk = &bucket{limiter: rate.NewLimiter(b.limit, b.burst)}
		b.byKey[key] = bk
	}
	bk.seen = now
	b.mu.Unlock()

	return bk.limiter.AllowN(now, 1)
}

// sweep must be called with mu held.
func (b *buckets) sweep(now time.Time) {
	for k, bk := range b.byKey {
		if now.Sub(bk.seen) > b.ttl {
			delete(b.byKey, k)
		}
	}
	b.swept = now
}

func tooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
}

// RateLimit limits each client IP to its own token bucket.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	b := newBuckets(cfg)
	return func(c *gin.Context) {
		if !b.allow(c.ClientIP(), time.Now()) {
			tooManyRequests(c)
			return
		}
		c.Next()
	}
}

// GlobalRateLimit shares a single token bucket across every client.
func GlobalRateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			tooManyRequests(c)
			return
		}
		c.Next()
	}
}
